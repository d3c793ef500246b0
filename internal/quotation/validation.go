package quotation

import "fmt"

// ValidateFreight rejects a quotation whose freight mode is Exclusive without
// a positive loading charge. Runs before every save.
func ValidateFreight(q Quotation) error {
	if q.FreightMode != FreightExclusive {
		return nil
	}
	if q.LoadingCharges <= 0 {
		return fmt.Errorf("%w: Loading Charges must be greater than 0 when Freight = Exclusive", ErrValidation)
	}
	return nil
}
