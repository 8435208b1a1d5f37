// Package dictionary carries the curated default chart of accounts used to
// seed a new business. Codes follow the local convention: 1 assets,
// 2 liabilities, 3 equity, 4 income, 5 costs, 6 expenses.
package dictionary

import "github.com/plazapos/contable/internal/ledger"

// AccountDef describes one account of the default chart.
type AccountDef struct {
	Code   string             `json:"code"`
	Name   string             `json:"name"`
	Type   ledger.AccountType `json:"type"`
	Detail bool               `json:"detail"`
}

// Well-known detail account codes referenced by posting flows.
const (
	CodeCash           = "1.1.01.01"
	CodeBank           = "1.1.02.01"
	CodeReceivables    = "1.1.03.01"
	CodeInventory      = "1.1.04.01"
	CodePayables       = "2.1.01.01"
	CodeTaxPayable     = "2.1.05.01"
	CodeSalesIncome    = "4.1.01.01"
	CodeSalesDiscounts = "4.1.02.01"
	CodeGeneralExpense = "6.1.01.01"
)

// defaultChart is ordered parents-first so it can be inserted sequentially.
var defaultChart = []AccountDef{
	{Code: "1", Name: "Activos", Type: ledger.AccountTypeAsset},
	{Code: "1.1", Name: "Activo Corriente", Type: ledger.AccountTypeAsset},
	{Code: "1.1.01", Name: "Efectivo en Caja", Type: ledger.AccountTypeAsset},
	{Code: CodeCash, Name: "Caja General", Type: ledger.AccountTypeAsset, Detail: true},
	{Code: "1.1.02", Name: "Bancos", Type: ledger.AccountTypeAsset},
	{Code: CodeBank, Name: "Banco Cuenta Corriente", Type: ledger.AccountTypeAsset, Detail: true},
	{Code: "1.1.03", Name: "Cuentas por Cobrar", Type: ledger.AccountTypeAsset},
	{Code: CodeReceivables, Name: "Clientes", Type: ledger.AccountTypeAsset, Detail: true},
	{Code: "1.1.04", Name: "Inventarios", Type: ledger.AccountTypeAsset},
	{Code: CodeInventory, Name: "Inventario de Mercancias", Type: ledger.AccountTypeAsset, Detail: true},

	{Code: "2", Name: "Pasivos", Type: ledger.AccountTypeLiability},
	{Code: "2.1", Name: "Pasivo Corriente", Type: ledger.AccountTypeLiability},
	{Code: "2.1.01", Name: "Cuentas por Pagar", Type: ledger.AccountTypeLiability},
	{Code: CodePayables, Name: "Proveedores", Type: ledger.AccountTypeLiability, Detail: true},
	{Code: "2.1.05", Name: "Impuestos por Pagar", Type: ledger.AccountTypeLiability},
	{Code: CodeTaxPayable, Name: "ITBIS por Pagar", Type: ledger.AccountTypeLiability, Detail: true},

	{Code: "3", Name: "Patrimonio", Type: ledger.AccountTypeEquity},
	{Code: "3.1", Name: "Capital", Type: ledger.AccountTypeEquity},
	{Code: "3.1.01", Name: "Capital Social", Type: ledger.AccountTypeEquity, Detail: true},

	{Code: "4", Name: "Ingresos", Type: ledger.AccountTypeIncome},
	{Code: "4.1", Name: "Ingresos Operacionales", Type: ledger.AccountTypeIncome},
	{Code: "4.1.01", Name: "Ventas", Type: ledger.AccountTypeIncome},
	{Code: CodeSalesIncome, Name: "Ingresos por Ventas", Type: ledger.AccountTypeIncome, Detail: true},
	{Code: "4.1.02", Name: "Descuentos", Type: ledger.AccountTypeIncome},
	{Code: CodeSalesDiscounts, Name: "Descuentos sobre Ventas", Type: ledger.AccountTypeIncome, Detail: true},

	{Code: "5", Name: "Costos", Type: ledger.AccountTypeCost},
	{Code: "5.1", Name: "Costo de Ventas", Type: ledger.AccountTypeCost},
	{Code: "5.1.01", Name: "Costo de Mercancia Vendida", Type: ledger.AccountTypeCost, Detail: true},

	{Code: "6", Name: "Gastos", Type: ledger.AccountTypeExpense},
	{Code: "6.1", Name: "Gastos Operativos", Type: ledger.AccountTypeExpense},
	{Code: "6.1.01", Name: "Gastos de Operacion", Type: ledger.AccountTypeExpense},
	{Code: CodeGeneralExpense, Name: "Gastos Generales", Type: ledger.AccountTypeExpense, Detail: true},
}

// DefaultChart returns the seed chart ordered parents-first.
func DefaultChart() []AccountDef {
	out := make([]AccountDef, len(defaultChart))
	copy(out, defaultChart)
	return out
}
