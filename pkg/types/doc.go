// Package types provides the domain types shared by the evently packages: the
// entities served by the booking API (users, events, registrations, organizer
// requests), the response envelope and pagination metadata, and the query and
// form payloads sent with requests.
//
// The package depends only on the standard library and agentstation/utc so that
// the normalizer, the services and the stores can all share it without cycles.
//
//nolint:revive // Package name 'types' is appropriate for common type definitions
package types
