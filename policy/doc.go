// Package policy provides optional declarative rules that decide when an
// agent recommendation must be countersigned by a human reviewer before the
// application finalizes.
package policy
