package notify

import (
	"strings"
	"text/template"

	"github.com/aogosto/order-triage/internal/orders"
)

// Canonical pickup stores with their own message.
const (
	StoreCentral  = "Central Distribuição (Sagrada Família)"
	StoreBarreiro = "Unidade Barreiro"
	StoreSion     = "Unidade Sion"
)

const (
	templateSiteCentral  = "site_pickup_central"
	templateSiteBarreiro = "site_pickup_barreiro"
	templateSiteSion     = "site_pickup_sion"
	templateSitePickup   = "site_pickup"
	templateSiteDelivery = "site_delivery"
	templateAppPickup    = "app_pickup"
	templateAppDelivery  = "app_delivery"
)

var messages = template.Must(template.New("messages").Parse(`
{{define "site_pickup_central"}}Olá {{.Name}}! 👋
Seu pedido chegou aqui na Ao Gosto Carnes e já está sendo montado. 🥩📦
Pedimos um prazo de 30 minutos para montar o pedido. 😊
⚠️ *Mensagem automática — não responda por aqui*. Para falar com nossa equipe, utilize a Central Oficial: *(31) 3461-3297*.
📍Retirada: Av. Silviano Brandão, 685, Sagrada Família. (Basta subir o portão grande de garagem, temos estacionamento!)
Ah, lembramos que os pedidos para retirada são guardados somente até o final do dia.{{end}}

{{define "site_pickup_barreiro"}}Olá {{.Name}}! 👋
Seu pedido foi recebido pela *Ao Gosto Carnes* e já está em preparação! 🥩📦
Pedimos um prazo de 30 minutos para montá-lo. 😊
Caso tenha alguma dúvida, envie uma mensagem para a nossa Unidade do Barreiro: *(31) 99534-8704*
_Informações de Retirada:_
📆 *Data:* {{or .Date "Não informada"}}
⏰ *Horário:* {{or .Window "Não informado"}}
📍 *Local:* Av. Sinfrônio Brochado, 612 - Barreiro, Belo Horizonte
Obrigado por escolher a *Ao Gosto Carnes*!
(Mensagem Automática, favor não responder){{end}}

{{define "site_pickup_sion"}}Olá {{.Name}}! 👋
Seu pedido foi recebido pela *Ao Gosto Carnes* e já está em preparação! 🥩📦
Pedimos um prazo de 30 minutos para montá-lo. 😊
Para falar na Unidade Sion, basta chamar nesse número: *(31) 9 8311-2919*.
_Informações de Retirada:_
📆 *Data:* {{or .Date "Não informada"}}
⏰ *Horário:* {{or .Window "Não informado"}}
📍 *Local:* Rua Haití, 354 - loja 5 - Sion, Belo Horizonte
Obrigado por escolher a *Ao Gosto Carnes*!
(Mensagem Automática, favor não responder){{end}}

{{define "site_pickup"}}Olá {{.Name}}! 👋
Seu pedido chegou aqui na Ao Gosto Carnes e já está sendo montado. 🥩📦
📍Retirada: Av. Silviano Brandão, 685, Sagrada Família. (Basta subir o portão grande de garagem, temos estacionamento!)
⚠️ *Mensagem automática — não responda por aqui*.
Para falar com nossa equipe, utilize a central oficial: *(31) 3461-3297*.{{end}}

{{define "site_delivery"}}Ei {{.Name}}! 👋
Seu pedido na Ao Gosto Carnes foi *confirmado* e já estamos preparando tudo.
Aqui está o endereço de entrega:
📍 *{{.Address}}*
⚠️ *Mensagem automática — não responda por aqui*.
Para falar com nossa equipe, utilize a central oficial: *(31) 3461-3297*.
Se o endereço está correto, em breve sua caixinha laranja estará aí com você!
⏰ O prazo de entrega varia de *30 minutos* a *2 horas* em BH e até 3 horas em outras localidades.
Estamos empenhados em entregar o mais rápido possível! 😊
Desejamos uma excelente experiência com nossos produtos!{{end}}

{{define "app_pickup"}}Olá {{.Name}}! 👋

Seu pedido chegou aqui na Ao Gosto Carnes e já está sendo montado. 🥩📦
Pedimos um prazo de 30 minutos para montar o pedido. 😊

📍Retirada: Av. Silviano Brandão, 685, Sagrada Família. (Basta subir o portão grande de garagem, temos estacionamento!)
Ah, lembramos que os pedidos para retirada são guardados somente até o final do dia.{{end}}

{{define "app_delivery"}}Ei {{.Name}}! 👋

Seu pedido na Ao Gosto Carnes foi confirmado e já estamos preparando tudo. Aqui está o endereço de entrega:
📍{{.Address}}

Se o endereço está correto, em breve sua caixinha laranja estará aí com você!
O prazo de entrega varia de 30 minutos a 2 horas em BH e até 3 horas em outras localidades.
Estamos empenhados em entregar o mais rápido possível! 😊

Desejamos uma excelente experiência com nossos produtos!{{end}}
`))

type messageData struct {
	Name    string
	Address string
	Date    string
	Window  string
}

// templateFor picks the message by source, delivery type and canonical store.
func templateFor(order *orders.Normalized) string {
	pickup := order.DeliveryType == orders.DeliveryTypePickup
	if order.Source == orders.SourceApp {
		if pickup {
			return templateAppPickup
		}
		return templateAppDelivery
	}
	if !pickup {
		return templateSiteDelivery
	}
	switch order.Store {
	case StoreCentral:
		return templateSiteCentral
	case StoreBarreiro:
		return templateSiteBarreiro
	case StoreSion:
		return templateSiteSion
	default:
		return templateSitePickup
	}
}

// Render produces the customer message for order.
func Render(order *orders.Normalized) (string, error) {
	data := messageData{
		Name:    order.FirstName,
		Address: order.AddressFull,
		Date:    order.Date,
		Window:  order.Window,
	}
	if order.Source == orders.SourceApp {
		data.Address = appAddress(order)
	}
	var b strings.Builder
	if err := messages.ExecuteTemplate(&b, templateFor(order), data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func appAddress(order *orders.Normalized) string {
	return order.Street + ", " + order.Number + ", " + order.Complement + ", " +
		order.Neighborhood + " - " + order.City + " | CEP: " + order.Postcode
}
