package notify

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"ticketflow/src/config"
	"ticketflow/src/lib"
	"ticketflow/src/lifecycle"
	"ticketflow/src/models"

	"github.com/google/uuid"
)

// LinkSaver persists the generated WhatsApp link on the ticket so the
// admin panel can dispatch it later.
type LinkSaver interface {
	SetWhatsAppLink(ctx context.Context, id uuid.UUID, link string) error
}

// Notifier delivers paid-ticket confirmations over email and prepares the
// WhatsApp message. Both channels are best-effort: failures are logged
// and never bubble into the payment transition.
type Notifier struct {
	links LinkSaver
}

func New(links LinkSaver) *Notifier {
	return &Notifier{links: links}
}

func (n *Notifier) TicketPaid(ctx context.Context, ticket *models.Ticket) {
	log.Printf("[notify] sending ticket %s to %s\n", ticket.ID, ticket.HolderName)

	link := BuildWhatsAppLink(ticket)
	if link != "" && n.links != nil {
		if err := n.links.SetWhatsAppLink(ctx, ticket.ID, link); err != nil {
			log.Printf("[notify] could not store whatsapp link for %s: %s\n", ticket.ID, err.Error())
		}
	}

	if err := SendTicketEmail(ticket); err != nil {
		log.Printf("[notify] could not email ticket %s: %s\n", ticket.ID, err.Error())
		return
	}
	log.Printf("[notify] email sent to %s\n", ticket.Email)
}

// SendTicketEmail mails the confirmation with the entry QR embedded.
func SendTicketEmail(ticket *models.Ticket) error {
	png, err := lib.RenderQR(lifecycle.EncodeQRPayload(ticket))
	if err != nil {
		return err
	}
	from := os.Getenv("SMTP_FROM")
	event := config.EventName()
	body := fmt.Sprintf(`
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
		<h1 style="text-align: center;">Purchase confirmed!</h1>
		<h2 style="text-align: center;">%s</h2>
		<div style="padding: 20px; border-radius: 10px; margin: 20px 0;">
			<h3>Your ticket details:</h3>
			<p><strong>Name:</strong> %s</p>
			<p><strong>ID number:</strong> %s</p>
			<p><strong>Tier:</strong> %s</p>
			<p><strong>Quantity:</strong> %d</p>
			<p><strong>Total paid:</strong> $%s</p>
		</div>
		<div style="text-align: center; padding: 20px; margin: 20px 0;">
			<h3>Your entry QR code:</h3>
			<img src="cid:qr-ticket.png" alt="QR Code" style="width: 300px; height: 300px;" />
			<p style="font-size: 12px;">ID: %s</p>
			<p style="font-size: 11px;">Present this code at the venue entrance</p>
		</div>
	</div>`,
		event, ticket.HolderName, ticket.NationalID, ticket.Tier, ticket.Quantity, ticket.Total.StringFixed(0), ticket.ID)

	return lib.SendMail(&lib.SendMailInput{
		From:        from,
		FromName:    fmt.Sprintf("TicketFlow - %s", event),
		To:          []string{ticket.Email},
		Subject:     fmt.Sprintf("Your ticket for %s", event),
		Body:        body,
		Html:        true,
		EmbedName:   "qr-ticket.png",
		EmbedReader: bytes.NewReader(png),
	})
}

// NormalizePhone coerces a local number into the international WhatsApp
// form (Argentina mobile, 549 prefix), digits only.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	number := digits.String()
	if number == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(number, "549"):
	case strings.HasPrefix(number, "54"):
		number = "549" + number[2:]
	case strings.HasPrefix(number, "9"):
		number = "549" + number[1:]
	default:
		number = "549" + number
	}
	return number
}

// BuildWhatsAppLink composes a wa.me deep link with the confirmation
// message prefilled. Returns "" when the ticket has no usable phone.
func BuildWhatsAppLink(ticket *models.Ticket) string {
	number := NormalizePhone(ticket.Phone)
	if number == "" {
		return ""
	}
	message := fmt.Sprintf(`Your ticket for %s!

Purchase confirmed
Name: %s
ID number: %s
Tier: %s
Quantity: %d
Total: $%s

Download your QR code from the confirmation email and present it at the entrance.
Ticket ID: %s`,
		config.EventName(), ticket.HolderName, ticket.NationalID, ticket.Tier, ticket.Quantity, ticket.Total.StringFixed(0), ticket.ID)
	return fmt.Sprintf("https://wa.me/%s?text=%s", number, url.QueryEscape(message))
}
