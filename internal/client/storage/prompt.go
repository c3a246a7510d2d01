package storage

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/fasogadget/internal/models"
)

// PromptCustomer asks for the checkout contact details on out and reads the
// answers from in.
func PromptCustomer(in io.Reader, out io.Writer) models.Customer {
	scanner := bufio.NewScanner(in)
	ask := func(label string) string {
		fmt.Fprint(out, label)
		scanner.Scan()
		return strings.TrimSpace(scanner.Text())
	}
	return models.Customer{
		LastName:  ask("Nom: "),
		FirstName: ask("Prénom: "),
		Phone:     ask("Téléphone: "),
		Locality:  ask("Localité: "),
		Notes:     ask("Notes (optionnel): "),
	}
}

// BuildOrder turns the cart into an order payload. The order number and date
// are left to the server.
func BuildOrder(items []CartItem, client models.Customer) models.Order {
	order := models.Order{Client: client, Items: make([]models.OrderItem, 0, len(items))}
	for _, it := range items {
		line := models.OrderItem{
			Name:      it.Name,
			UnitPrice: it.Price,
			Quantity:  it.Quantity,
			Subtotal:  it.Price * it.Quantity,
		}
		order.Items = append(order.Items, line)
		order.Total += line.Subtotal
	}
	return order
}
