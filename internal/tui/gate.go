package tui

// view identifies which screen the program renders.
type view int

const (
	viewLogin view = iota
	viewList
	viewDetail
)

// route is the navigation gate: a pure function of the session's authentication state. An
// unauthenticated session always lands on the login view, wherever the user was — this is how a
// 401-triggered reset anywhere in the app forces an immediate return to login. Logging in moves
// from login to the vehicle list; an already-authenticated user keeps their current view.
func route(authenticated bool, current view) view {
	if !authenticated {
		return viewLogin
	}
	if current == viewLogin {
		return viewList
	}
	return current
}
