// Package pipeline runs one fare check: calendar fetch, price filter,
// itinerary resolution and Telegram delivery, sequentially over routes and
// candidates.
//
// External calls never abort a run. A failed call is logged with its route
// and stage, recorded in the Report and treated as "no data".
package pipeline
