package types

// ResourceType identifies the kind of entity an operation works on.
// It is used in error values and log fields.
type ResourceType string

const (
	// ResourceTypeEvent represents an event resource.
	ResourceTypeEvent ResourceType = "event"

	// ResourceTypeUser represents a user resource.
	ResourceTypeUser ResourceType = "user"

	// ResourceTypeRegistration represents a booking (registration) resource.
	ResourceTypeRegistration ResourceType = "registration"

	// ResourceTypeOrganizerRequest represents an organizer application.
	ResourceTypeOrganizerRequest ResourceType = "organizer_request"
)

// String returns the string representation of a resource type.
func (rt ResourceType) String() string {
	return string(rt)
}

// Identifiable is implemented by every entity keyed by a stable integer id.
type Identifiable interface {
	GetID() int
}
