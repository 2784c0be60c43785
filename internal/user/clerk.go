package user

import "encoding/json"

// ClerkWebhookEvent is the envelope Clerk posts to the webhook
// endpoint; Data is decoded per event type.
type ClerkWebhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type ClerkEmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type ClerkUserData struct {
	ID                    string              `json:"id"`
	Username              string              `json:"username"`
	FirstName             string              `json:"first_name"`
	LastName              string              `json:"last_name"`
	ImageURL              string              `json:"image_url"`
	ProfileImageURL       string              `json:"profile_image_url"`
	EmailAddresses        []ClerkEmailAddress `json:"email_addresses"`
	PrimaryEmailAddressID string              `json:"primary_email_address_id"`
}

// PrimaryEmail resolves the primary address, falling back to the first
// listed one when the primary id does not match.
func (d ClerkUserData) PrimaryEmail() string {
	for _, e := range d.EmailAddresses {
		if e.ID == d.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(d.EmailAddresses) > 0 {
		return d.EmailAddresses[0].EmailAddress
	}
	return ""
}

// DisplayUsername falls back to first+last name when no username is set.
func (d ClerkUserData) DisplayUsername() string {
	if d.Username != "" {
		return d.Username
	}
	return d.FirstName + d.LastName
}

// Avatar prefers the newer image_url field over the legacy one.
func (d ClerkUserData) Avatar() string {
	if d.ImageURL != "" {
		return d.ImageURL
	}
	return d.ProfileImageURL
}
