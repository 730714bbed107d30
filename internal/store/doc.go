// Package store holds the matchmaking desk's business data: staff accounts,
// client profiles (registrations), horoscope shares, follow-up reminders and
// outbound message logs.
//
// Store holds no connection of its own. Every statement goes through a
// db.Executor in the MySQL dialect, so the same code runs against the hosted
// MySQL server and the desktop build's embedded SQLite file.
//
// Patch requests decode into Optional fields so that an absent key, an
// explicit null and a value can be told apart.
package store
