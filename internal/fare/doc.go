// Package fare holds the fare-watching domain: routes, calendar candidates,
// itinerary options and matched offers, plus the pure filtering, pairing and
// message formatting rules applied to them.
//
// Nothing in this package performs I/O.
package fare
