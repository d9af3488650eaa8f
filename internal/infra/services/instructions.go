package services

import (
	"context"
	"fmt"
	"strings"

	"barrio-connector/internal/domain/entities"
	ports "barrio-connector/internal/domain/interfaces/repository"
	"barrio-connector/internal/infra/logger"

	"github.com/sirupsen/logrus"
)

const directoryContextLimit = 100

const responseFormat = `Responde SIEMPRE con un único objeto JSON, sin texto adicional:
{"message": "<texto para el usuario>", "data": {<borrador completo>}, "ready": <true|false>}
- "data" reemplaza por completo al borrador anterior: incluye también los campos que ya conocías.
- "ready" es true solo cuando todos los campos están completos; en ese caso "message" debe resumir el registro y pedir que el usuario responda "SI" para confirmar.
- Si falta algo, "ready" es false y "message" pregunta por lo que falta, una cosa a la vez.
- Usa "none" como cliente o proveedor cuando el usuario diga que no hay.
- Responde en español, de forma breve y amable.`

const saleSchema = `Estás registrando una VENTA de una tienda de barrio. Campos de "data":
- "products": lista de {"product_id": "<id del catálogo o vacío>", "name": "<nombre>", "quantity": <número>, "unit_price": <número>}
- "customer": nombre del cliente o "none"
- "payment_method": uno de "cash", "transfer", "card", "other_digital"
- "paid": true si ya pagó, false si queda debiendo
- "total": número, igual a la suma de cantidad por precio unitario
Cuando un producto coincida con el catálogo usa su id y su precio salvo que el usuario indique otro precio.`

const expenseSchema = `Estás registrando un GASTO de una tienda de barrio. Campos de "data":
- "concept": descripción corta del gasto
- "amount": número
- "supplier": nombre del proveedor o "none"
- "category": uno de "goods", "services", "payroll", "other"
- "payment_method": uno de "cash", "transfer", "card", "other_digital"
- "paid": true si ya se pagó, false si queda pendiente`

// InstructionBuilder assembles the system instructions for an intent together
// with the store context the extractor needs to resolve names.
type InstructionBuilder struct {
	Catalog   ports.IProductCatalog
	Customers ports.ICounterpartyDirectory
	Suppliers ports.ICounterpartyDirectory
	Logger    *logger.Logger
}

func NewInstructionBuilder(catalog ports.IProductCatalog, customers, suppliers ports.ICounterpartyDirectory, logger *logger.Logger) *InstructionBuilder {
	return &InstructionBuilder{Catalog: catalog, Customers: customers, Suppliers: suppliers, Logger: logger}
}

// Build never fails; missing store context only makes the instructions poorer.
func (b *InstructionBuilder) Build(ctx context.Context, storeID string, intent entities.Intent) string {
	var sb strings.Builder

	switch intent {
	case entities.IntentSale:
		sb.WriteString(saleSchema)
		b.writeCatalog(ctx, &sb, storeID)
		b.writeDirectory(ctx, &sb, storeID, b.Customers, "Clientes registrados")
	case entities.IntentExpense:
		sb.WriteString(expenseSchema)
		b.writeDirectory(ctx, &sb, storeID, b.Suppliers, "Proveedores registrados")
	}

	sb.WriteString("\n\n")
	sb.WriteString(responseFormat)
	return sb.String()
}

func (b *InstructionBuilder) writeCatalog(ctx context.Context, sb *strings.Builder, storeID string) {
	if b.Catalog == nil {
		return
	}
	products, err := b.Catalog.ListProducts(ctx, storeID)
	if err != nil {
		b.Logger.Warn("Could not load product catalog for instructions", logrus.Fields{"store_id": storeID, "error": err.Error()})
		return
	}
	if len(products) == 0 {
		return
	}

	sb.WriteString("\n\nCatálogo (id | nombre | precio | stock):\n")
	for _, p := range products {
		fmt.Fprintf(sb, "- %s | %s | %s | %s\n", p.ID.Hex(), p.Name, p.Price.Money(), p.Quantity.String())
	}
}

func (b *InstructionBuilder) writeDirectory(ctx context.Context, sb *strings.Builder, storeID string, dir ports.ICounterpartyDirectory, title string) {
	if dir == nil {
		return
	}
	list, err := dir.List(ctx, storeID, directoryContextLimit)
	if err != nil {
		b.Logger.Warn(fmt.Sprintf("Could not load %s for instructions", strings.ToLower(title)), logrus.Fields{"store_id": storeID, "error": err.Error()})
		return
	}
	if len(list) == 0 {
		return
	}

	names := make([]string, 0, len(list))
	for _, c := range list {
		names = append(names, c.Name)
	}
	fmt.Fprintf(sb, "\n\n%s: %s", title, strings.Join(names, ", "))
}
