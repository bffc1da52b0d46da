package types

import (
	"bytes"
	"encoding/json"

	"github.com/agentstation/utc"
)

// Role is the authorization role of a user.
type Role string

// Roles known to the booking API.
const (
	RoleUser      Role = "USER"
	RoleOrganizer Role = "ORGANIZER"
	RoleAdmin     Role = "ADMIN"
)

// String returns the string representation of a role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// CanOrganize reports whether the role may create and manage events.
func (r Role) CanOrganize() bool {
	return r == RoleOrganizer || r == RoleAdmin
}

// User is an account on the booking platform.
type User struct {
	ID           int      `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Email        string   `json:"email" yaml:"email"`
	Role         Role     `json:"role" yaml:"role"`
	ProfileImage ImageURL `json:"profileImage,omitempty" yaml:"profile_image,omitempty"`
	CreatedAt    utc.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt    utc.Time `json:"updatedAt" yaml:"updated_at"`
}

// GetID implements Identifiable.
func (u User) GetID() int { return u.ID }

// UserSummary is the trimmed user snapshot embedded in other entities.
type UserSummary struct {
	ID           int      `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Email        string   `json:"email,omitempty" yaml:"email,omitempty"`
	ProfileImage ImageURL `json:"profileImage,omitempty" yaml:"profile_image,omitempty"`
}

// ImageURL is an image reference. The API sends it either as a plain URL
// string, as an object with a "url" field, or as null.
type ImageURL string

// UnmarshalJSON accepts a string, a {"url": "..."} object or null.
func (i *ImageURL) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = ""
		return nil
	}
	if data[0] == '{' {
		var obj struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*i = ImageURL(obj.URL)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*i = ImageURL(s)
	return nil
}

// String returns the URL.
func (i ImageURL) String() string {
	return string(i)
}
