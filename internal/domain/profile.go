package domain

import "strings"

// RecipientProfile holds the contact details of a subscription owner.
type RecipientProfile struct {
	UserID      string
	DisplayName string
	PhoneNumber *string
	Email       string
}

// ContactFor returns the destination for channel, or false when the profile
// has no usable contact on that channel.
func (p *RecipientProfile) ContactFor(channel Channel) (string, bool) {
	if p == nil {
		return "", false
	}

	switch channel {
	case ChannelEmail:
		email := strings.TrimSpace(p.Email)
		return email, email != ""
	case ChannelSMS:
		if p.PhoneNumber == nil {
			return "", false
		}
		phone := strings.TrimSpace(*p.PhoneNumber)
		return phone, phone != ""
	}
	return "", false
}
