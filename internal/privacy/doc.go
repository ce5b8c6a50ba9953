// Package privacy is the single authority deciding whether a patient's
// identifying fields may be rendered.
//
// The decision is a pure function of three independently changing signals:
//
//	disclose = mode == nome  AND  token present  AND  offline
//
// ID mode always yields false regardless of the other signals; it is the
// initial state. Nothing outside this package may re-derive the formula -
// every consumer asks the Gate.
//
// The Gate is reactive: each mutator (mode change, token re-probe,
// connectivity transition) notifies every subscriber with the freshly
// computed decision, so screens recompute without polling.
//
// No gate operation returns an error. Uncertainty degrades to the
// non-disclosing state: an unreadable token probe counts as absent, an
// unreadable settings file counts as ID mode.
package privacy
