// Package models defines the core data structures for the catalog, orders
// and the admin back-office.
package models

// Category is the product family shown as a filter on the storefront.
type Category string

const (
	// Smartphone groups phones.
	Smartphone Category = "smartphone"
	// Audio groups earbuds, headphones and speakers.
	Audio Category = "audio"
	// Watch groups smart watches.
	Watch Category = "montre"
	// Accessory groups cases, chargers, cables and power banks.
	Accessory Category = "accessoire"
)

// Categories lists the valid categories in display order.
var Categories = []Category{Smartphone, Audio, Watch, Accessory}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product is a catalog entry.
type Product struct {
	// ID is the store-assigned identifier.
	ID string `json:"id"`
	// Name is the display name.
	Name string `json:"name"`
	// Category is the product family.
	Category Category `json:"category"`
	// Price is expressed in minor currency units and is never negative.
	Price int64 `json:"price"`
	// Image is the public path or URL of the product picture; empty when none.
	Image string `json:"image"`
	// Badge is a free-text ribbon such as "Nouveau"; empty when none.
	Badge string `json:"badge"`
}

// ProductPatch carries a partial product update. Nil fields are left untouched.
type ProductPatch struct {
	Name     *string   `json:"name,omitempty"`
	Category *Category `json:"category,omitempty"`
	Price    *int64    `json:"price,omitempty"`
	Image    *string   `json:"image,omitempty"`
	Badge    *string   `json:"badge,omitempty"`
}

// Empty reports whether the patch would not change anything.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Price == nil && p.Image == nil && p.Badge == nil
}

// Apply returns a copy of product with the supplied fields overwritten.
func (p ProductPatch) Apply(product Product) Product {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Category != nil {
		product.Category = *p.Category
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Image != nil {
		product.Image = *p.Image
	}
	if p.Badge != nil {
		product.Badge = *p.Badge
	}
	return product
}

// Customer holds the contact details captured at checkout.
type Customer struct {
	LastName  string `json:"nom" bson:"nom" validate:"max=200"`
	FirstName string `json:"prenom" bson:"prenom" validate:"max=200"`
	Phone     string `json:"telephone" bson:"telephone" validate:"max=50"`
	Locality  string `json:"localite" bson:"localite" validate:"max=200"`
	Notes     string `json:"notes,omitempty" bson:"notes,omitempty" validate:"max=2000"`
}

// OrderItem is a line of an order, captured at order time.
type OrderItem struct {
	Name      string `json:"nom" bson:"nom"`
	UnitPrice int64  `json:"prix" bson:"prix" validate:"gte=0"`
	Quantity  int64  `json:"quantite" bson:"quantite" validate:"gt=0"`
	Subtotal  int64  `json:"sousTotal" bson:"sousTotal"`
}

// Order is an immutable snapshot of a checkout.
type Order struct {
	// ID is the store-assigned identifier.
	ID string `json:"id,omitempty" bson:"-"`
	// Client is the customer contact information.
	Client Customer `json:"client" bson:"client"`
	// Items are the ordered lines.
	Items []OrderItem `json:"produits" bson:"produits" validate:"required,min=1,dive"`
	// Total is the sum of all line subtotals.
	Total int64 `json:"total" bson:"total"`
	// Date is the ISO-8601 creation timestamp.
	Date string `json:"date" bson:"date"`
	// Number is the human-readable order number, e.g. "FG-1718000000000".
	Number string `json:"numeroCommande" bson:"numeroCommande"`
}

// AdminConfig is the singleton record holding the back-office credentials.
type AdminConfig struct {
	// Username is the admin login.
	Username string `json:"username" bson:"username"`
	// PasswordHash is the bcrypt hash of the admin password.
	PasswordHash string `json:"passwordHash,omitempty" bson:"passwordHash,omitempty"`
	// LegacyPassword is a plain-text password left by older deployments.
	// It is cleared as soon as the password is hashed.
	LegacyPassword string `json:"password,omitempty" bson:"password,omitempty"`
}

// AdminConfigID is the fixed identifier of the AdminConfig record.
const AdminConfigID = "admin"
