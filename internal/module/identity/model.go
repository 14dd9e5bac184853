package identity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Public metadata keys shared with the mobile client.
const (
	MetaPendingTeamID = "pendingTeamId"
	MetaPendingRole   = "pendingRole"
	MetaSource        = "source"
	MetaPushToken     = "expoPushToken"

	// SourceTeamInvite marks metadata written by a team invitation.
	SourceTeamInvite = "team_invite"
)

// Identity is the subset of an identity provider profile the server reads.
type Identity struct {
	ID             string         `json:"id"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Email          string         `json:"email"`
	PublicMetadata map[string]any `json:"public_metadata,omitempty"`
}

// Name returns the display name, falling back to the email local part.
func (i *Identity) Name() string {
	name := strings.TrimSpace(strings.TrimSpace(i.FirstName) + " " + strings.TrimSpace(i.LastName))
	if name != "" {
		return name
	}
	if at := strings.IndexByte(i.Email, '@'); at > 0 {
		return i.Email[:at]
	}
	return i.ID
}

// MetadataString returns a string metadata value, or "".
func (i *Identity) MetadataString(key string) string {
	if i == nil || i.PublicMetadata == nil {
		return ""
	}
	s, _ := i.PublicMetadata[key].(string)
	return s
}

// InvitationRequest describes an invitation issued for an unregistered email.
type InvitationRequest struct {
	Email          string
	PublicMetadata map[string]any
	RedirectURL    string
}

// emailAddress mirrors the provider's email address object.
type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// User mirrors the provider's user object, as returned by the REST API and
// embedded in webhook events.
type User struct {
	ID                    string         `json:"id"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
	PrimaryEmailAddressID *string        `json:"primary_email_address_id"`
	PublicMetadata        map[string]any `json:"public_metadata"`
}

// PrimaryEmail returns the primary email, or the first listed one.
func (u *User) PrimaryEmail() string {
	if u.PrimaryEmailAddressID != nil {
		for _, e := range u.EmailAddresses {
			if e.ID == *u.PrimaryEmailAddressID {
				return e.EmailAddress
			}
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

// ToIdentity converts the provider user into an Identity.
func (u *User) ToIdentity() *Identity {
	id := &Identity{
		ID:             u.ID,
		Email:          strings.ToLower(strings.TrimSpace(u.PrimaryEmail())),
		PublicMetadata: u.PublicMetadata,
	}
	if u.FirstName != nil {
		id.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		id.LastName = *u.LastName
	}
	return id
}

// ParseUser decodes a provider user object.
func ParseUser(data []byte) (*Identity, error) {
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("decode user: missing id")
	}
	return u.ToIdentity(), nil
}
