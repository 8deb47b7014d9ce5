package service

import (
	"fmt"

	matchmodels "kitmatch/internal/matching/models"
	"kitmatch/internal/notify/models"
	postmodels "kitmatch/internal/posts/models"
)

// compose builds the notification for a match. Texts are addressed to
// Brazilian WhatsApp users and stay in Portuguese.
func compose(m *matchmodels.Match, d *matchmodels.Donor, r *matchmodels.Receiver, p *postmodels.Post) *models.Message {
	label := m.Kit.Label()
	return &models.Message{
		MatchID:       m.ID,
		PickupCode:    m.PickupCode,
		Kit:           m.Kit,
		KitLabel:      label,
		PostName:      p.Name,
		PostCity:      p.City,
		PostAddress:   p.Address,
		DonorName:     d.Name,
		DonorPhone:    d.Phone,
		ReceiverName:  r.Name,
		ReceiverPhone: r.Phone,
		Summary:       summaryText(m, d, r, p),
		ReceiverText:  receiverText(r.Name, p.DisplayName(), p.Address, m.PickupCode),
		DonorText:     donorText(d.Name),
		CreatedAt:     m.CreatedAt,
	}
}

func summaryText(m *matchmodels.Match, d *matchmodels.Donor, r *matchmodels.Receiver, p *postmodels.Post) string {
	return fmt.Sprintf(
		"Match gerado!\nKit: %s\nCódigo de retirada: %s\nPosto: %s\nDoadora: %s\nReceptora: %s\n",
		m.Kit.Label(), m.PickupCode, p.DisplayName(), d.Name, r.Name,
	)
}

func receiverText(name, post, address, code string) string {
	if address == "" {
		address = "informado pelo posto"
	}
	return fmt.Sprintf(
		"Oi, %s!\n"+
			"Boas notícias: encontramos uma doação compatível com o kit que você pediu!\n\n"+
			"Você poderá retirar em:\n"+
			"Posto: %s\n"+
			"Endereço: %s\n\n"+
			"Código de retirada: %s\n\n"+
			"Leve este código e um documento com foto até o posto de referência.\n"+
			"Qualquer dúvida, pode responder esta mensagem.\n\n"+
			"Um abraço do Coração Solidário.",
		name, post, address, code,
	)
}

func donorText(name string) string {
	return fmt.Sprintf(
		"Oi, %s!\n"+
			"Passando pra te contar que a sua doação já foi pareada com uma pessoa que precisava muito desse kit.\n"+
			"Ela vai retirar no posto de referência nos próximos dias.\n\n"+
			"Obrigada por fazer parte dessa corrente de cuidado.",
		name,
	)
}
