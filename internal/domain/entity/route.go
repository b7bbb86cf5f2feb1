package entity

// Destination is a role-scoped view. An empty RequiredRole admits either role.
type Destination struct {
	Path         string
	RequiredRole Role
}

// GuardOutcome is the result kind of a route guard evaluation.
type GuardOutcome string

const (
	GuardAllow          GuardOutcome = "allow"
	GuardRedirectSignIn GuardOutcome = "redirect_sign_in"
	GuardLoading        GuardOutcome = "loading"
	GuardRedirectRole   GuardOutcome = "redirect_role"
)

// GuardDecision tells the caller what to render. Location is set for
// redirects; ReturnTo carries the originally requested path to sign-in.
type GuardDecision struct {
	Outcome  GuardOutcome `json:"outcome"`
	Location string       `json:"location,omitempty"`
	ReturnTo string       `json:"return_to,omitempty"`
}
