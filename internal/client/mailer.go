package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/electrosolucion2025/Whats2Want/internal/model"
)

// Mailer dispatches the HTML order receipt after a successful settlement.
// Best-effort side channel; never blocks a payment decision.
type Mailer interface {
	SendReceipt(ctx context.Context, tenant *model.Tenant, order *model.Order, payment *model.Payment) error
}

type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

type mailerImpl struct {
	cfg *SMTPConfig
}

func NewMailer(cfg *SMTPConfig) Mailer {
	return &mailerImpl{cfg: cfg}
}

func (m *mailerImpl) SendReceipt(ctx context.Context, tenant *model.Tenant, order *model.Order, payment *model.Payment) error {
	if tenant.Email == "" {
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(tenant.Email); err != nil {
		return err
	}
	msg.Subject(fmt.Sprintf("Confirmacion de pedido #%s", order.OrderNumber))
	msg.SetBodyString(mail.TypeTextHTML, receiptHTML(tenant, order, payment))

	c, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, msg)
}

func receiptHTML(tenant *model.Tenant, order *model.Order, payment *model.Payment) string {
	var rows strings.Builder
	for _, item := range order.Items {
		name := ""
		if item.Product != nil {
			name = item.Product.Name
		}
		extras := "Sin extras"
		if len(item.Extras) > 0 {
			names := make([]string, len(item.Extras))
			for i, e := range item.Extras {
				names[i] = e.Name
			}
			extras = strings.Join(names, ", ")
		}
		rows.WriteString(fmt.Sprintf(`
			<tr>
				<td style="padding: 8px; border-bottom: 1px solid #ddd;"><strong>%s</strong><br><small style="color: #888;">%s</small></td>
				<td style="text-align: center; padding: 8px; border-bottom: 1px solid #ddd;">%d</td>
				<td style="text-align: right; padding: 8px; border-bottom: 1px solid #ddd;">%s&euro;</td>
			</tr>`, name, extras, item.Quantity, item.FinalPrice.StringFixed(2)))
	}

	table := ""
	if order.TableNumber != "" {
		table = order.TableNumber
	} else {
		table = "N/A"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Confirmacion de Pedido</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 20px;">
	<table style="max-width: 600px; width: 100%%; background-color: #ffffff; padding: 20px; border-radius: 10px; margin: auto;">
		<tr><td style="text-align: center;">
			<h2 style="color: #333;">Confirmacion de Pedido</h2>
			<p style="color: #777;">Gracias por tu pedido en <strong>%s</strong></p>
		</td></tr>
		<tr><td style="padding: 10px 0;">
			<p><strong>Pedido:</strong> %s</p>
			<p><strong>Fecha:</strong> %s</p>
			<p><strong>Mesa:</strong> %s</p>
			<p><strong>Cliente:</strong> %s</p>
		</td></tr>
		<tr><td>
			<h3 style="color: #555;">Detalle del Pedido</h3>
			<table style="width: 100%%; border-collapse: collapse;">
				<thead>
					<tr style="background-color: #eee;">
						<th style="text-align: left; padding: 8px;">Producto</th>
						<th style="text-align: center; padding: 8px;">Cant.</th>
						<th style="text-align: right; padding: 8px;">Precio</th>
					</tr>
				</thead>
				<tbody>%s</tbody>
			</table>
		</td></tr>
		<tr><td style="padding: 10px 0;">
			<h2 style="color: #333;">Total: %s&euro;</h2>
		</td></tr>
		<tr><td style="text-align: center; padding: 20px 0;">
			<p style="color: #777;">Tu pedido esta en preparacion. Gracias por tu compra.</p>
		</td></tr>
	</table>
</body>
</html>`,
		tenant.Name, order.OrderNumber, order.CreatedAt.Format("02/01/2006 15:04"),
		table, order.PhoneNumber, rows.String(), payment.Amount.StringFixed(2))
}
