package service

import (
	"fmt"
	"strings"

	"github.com/lulgamer69/event-ticket-system/internal/config"
	"github.com/lulgamer69/event-ticket-system/internal/model"
)

// messages builds the notifications sent to registrants and staff.
// Notifications with an empty recipient are dropped by the notifier.
type messages struct {
	event   config.EventConfig
	staff   config.NotifyConfig
	baseURL string
}

func newMessages(event config.EventConfig, staff config.NotifyConfig, baseURL string) messages {
	return messages{event: event, staff: staff, baseURL: baseURL}
}

func (m messages) documentURL(ticket string) string {
	return m.baseURL + "/v1/tickets/" + ticket + "/document"
}

func (m messages) summary(reg *model.Registration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket: %s\n", reg.TicketNumber)
	fmt.Fprintf(&b, "Student: %s (%s, roll %s)\n", reg.ChildName, reg.ClassSection, reg.ChildRoll)
	if g := reg.Guests(); len(g) > 0 {
		fmt.Fprintf(&b, "Guests: %s\n", strings.Join(g, ", "))
	}
	fmt.Fprintf(&b, "People allowed: %d\n", reg.TotalPeople)
	if reg.AmountPaid > 0 {
		fmt.Fprintf(&b, "Amount: %d %s\n", reg.AmountPaid, m.event.Currency)
	}
	return b.String()
}

// ticketIssued sends the entry pass to the registrant.
func (m messages) ticketIssued(reg *model.Registration, docPath string) []model.Notification {
	subject := m.event.Name + " entry pass " + reg.TicketNumber
	body := "Your registration is confirmed.\n\n" + m.summary(reg) +
		"\nDownload: " + m.documentURL(reg.TicketNumber) +
		"\nShow the QR code at the gate. It is valid for one-time entry only.\n"
	return []model.Notification{
		{Channel: model.ChannelEmail, Recipient: reg.Email, Subject: subject, Body: body, AttachmentPath: docPath, TicketNumber: reg.TicketNumber},
		{Channel: model.ChannelWhatsApp, Recipient: reg.Phone, Subject: subject, Body: body, TicketNumber: reg.TicketNumber},
	}
}

// proofReceived asks staff to review an uploaded payment screenshot.
func (m messages) proofReceived(reg *model.Registration, proofPath string) []model.Notification {
	subject := "Payment proof to verify: " + reg.TicketNumber
	body := "A payment screenshot was uploaded.\n\n" + m.summary(reg) + "Phone: " + reg.Phone + "\n"
	return []model.Notification{
		{Channel: model.ChannelEmail, Recipient: m.staff.StaffEmail, Subject: subject, Body: body, AttachmentPath: proofPath, TicketNumber: reg.TicketNumber},
		{Channel: model.ChannelWhatsApp, Recipient: m.staff.StaffWhatsApp, Subject: subject, Body: body, TicketNumber: reg.TicketNumber},
	}
}

// paymentVerified tells the registrant the ticket is settled and copies
// staff.
func (m messages) paymentVerified(reg *model.Registration, docPath string) []model.Notification {
	out := m.ticketIssued(reg, docPath)
	subject := "Payment verified: " + reg.TicketNumber
	body := m.summary(reg)
	return append(out,
		model.Notification{Channel: model.ChannelEmail, Recipient: m.staff.StaffEmail, Subject: subject, Body: body, TicketNumber: reg.TicketNumber},
		model.Notification{Channel: model.ChannelWhatsApp, Recipient: m.staff.StaffWhatsApp, Subject: subject, Body: body, TicketNumber: reg.TicketNumber},
	)
}
