// Package conversation implements the turn-taking loop between a user, a
// completion model and an external action provider.
//
// An Engine owns one session: its message history and a small state machine
// (built on qmuntal/stateless) that decides, after every completion, whether
// to surface the reply to the caller or to dispatch an action and feed the
// result back to the model. Collaborators are injected; the engine performs
// no I/O of its own and reports every transition to optional observers.
package conversation
