package normalize_test

import (
	"fmt"

	"github.com/shopspring/decimal"
	"invoicedesk/internal/normalize"
)

func ExamplePhone() {
	fmt.Println(normalize.Phone("+91 99999-99999"))
	fmt.Println(normalize.Phone("919999999999"))
	fmt.Println(normalize.E164Digits("9999999999"))
	// Output:
	// 9999999999
	// 9999999999
	// 919999999999
}

func ExampleMinorUnits() {
	amount := normalize.PaymentAmount(decimal.RequireFromString("1499.5"))
	fmt.Println(normalize.MinorUnits(amount))
	fmt.Println(normalize.MinorUnits(normalize.PaymentAmount(decimal.Zero)))
	// Output:
	// 149950
	// 100
}
