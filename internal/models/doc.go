// Package models defines domain entities and storage interfaces for the cadence client.
//
// The package contains two categories of types:
//
// 1. Backend resources, decoded from the REST API:
//   - [Notification] : An inbox entry with server-side read state
//   - [Song] : A catalog track
//   - [Playlist] : A user playlist
//   - [Submission] : A creator's song submission and its review status
//   - [User] : The authenticated account
//
// 2. Local persistence capabilities:
//   - [Store] : A string key/value store used for the session token and the read overlay
//
// Resources sent to the backend implement [Validator] so input is rejected before a request is made.
package models
