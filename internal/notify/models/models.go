package models

import (
	"time"

	id "kitmatch/pkg/domain"
)

// Recipient identifies which side of a match a text is addressed to.
type Recipient string

const (
	RecipientReceiver Recipient = "receiver"
	RecipientDonor    Recipient = "donor"
)

// Message is the notification composed for a new match.
type Message struct {
	MatchID       id.MatchID `json:"match_id"`
	PickupCode    string     `json:"pickup_code"`
	Kit           id.KitType `json:"kit_type"`
	KitLabel      string     `json:"kit_label"`
	PostName      string     `json:"post_name"`
	PostCity      string     `json:"post_city"`
	PostAddress   string     `json:"post_address"`
	DonorName     string     `json:"donor_name"`
	DonorPhone    string     `json:"donor_phone"`
	ReceiverName  string     `json:"receiver_name"`
	ReceiverPhone string     `json:"receiver_phone"`
	Summary       string     `json:"summary"`
	ReceiverText  string     `json:"receiver_text"`
	DonorText     string     `json:"donor_text"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Outbound is one text ready for an external sender.
type Outbound struct {
	MatchID   id.MatchID `json:"match_id"`
	Recipient Recipient  `json:"recipient"`
	Phone     string     `json:"phone"`
	Text      string     `json:"text"`
}

// Outbounds splits the message into one text per recipient.
func (m *Message) Outbounds() []Outbound {
	return []Outbound{
		{MatchID: m.MatchID, Recipient: RecipientReceiver, Phone: m.ReceiverPhone, Text: m.ReceiverText},
		{MatchID: m.MatchID, Recipient: RecipientDonor, Phone: m.DonorPhone, Text: m.DonorText},
	}
}

type PendingResponse struct {
	Messages []Outbound `json:"messages"`
}

type ResendResponse struct {
	Message *Message `json:"message"`
	Warning string   `json:"warning,omitempty"`
}
