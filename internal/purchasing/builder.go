package purchasing

import (
	"fmt"
	"time"

	"github.com/cartage-erp/cartage-erp/internal/catalog"
	"github.com/cartage-erp/cartage-erp/internal/quotation"
)

// BuildMaterialLines maps quotation lines onto purchase order lines. Lines in
// the services item group are excluded; freight is ordered separately.
func BuildMaterialLines(q quotation.Quotation, lines []quotation.Line, scheduleDate time.Time) []OrderLine {
	var out []OrderLine
	for _, line := range lines {
		if line.ItemGroup == catalog.ItemGroupServices {
			continue
		}
		out = append(out, OrderLine{
			ItemCode:            line.ItemCode,
			ItemName:            line.ItemName,
			Description:         line.Description,
			Qty:                 line.Qty,
			Rate:                line.Rate,
			Amount:              line.Qty * line.Rate,
			UOM:                 line.UOM,
			ScheduleDate:        scheduleDate,
			SourceQuotation:     q.Number,
			SourceQuotationLine: line.ID,
		})
	}
	return out
}

// BuildFreightLine produces the single transport charge line. The service
// item's display name doubles as the item code, matching how the transport
// catalog entry is referenced on orders.
func BuildFreightLine(q quotation.Quotation, item catalog.TransportItem, scheduleDate time.Time) (OrderLine, error) {
	if item.Name == "" {
		return OrderLine{}, fmt.Errorf("%w: no freight service item found", ErrValidation)
	}
	if item.Rate <= 0 {
		return OrderLine{}, fmt.Errorf("%w: freight item rate is missing", ErrValidation)
	}
	return OrderLine{
		ItemCode:        item.Name,
		ItemName:        item.Name,
		Description:     fmt.Sprintf("Transport Charges for %s", q.Number),
		Qty:             1,
		Rate:            item.Rate,
		Amount:          item.Rate,
		UOM:             item.UOM,
		ScheduleDate:    scheduleDate,
		SourceQuotation: q.Number,
	}, nil
}
