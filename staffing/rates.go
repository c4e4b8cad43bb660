package staffing

import (
	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/rates"
)

// AverageSellRate is the mean resolved sell rate over the billable tasks on
// which personID holds an assignment active on ref. Inactive tasks are
// skipped. Returns zero when no task qualifies.
func AverageSellRate(projects []Project, personID generic.EntityID, ref generic.TimePoint) decimal.Decimal {
	total := decimal.Zero
	count := 0
	for _, project := range projects {
		for _, task := range project.Tasks {
			if !task.Billable || !task.Active {
				continue
			}
			if !task.AssignedOn(personID, ref) {
				continue
			}
			total = total.Add(rates.Resolve(task.SellRates, ref))
			count++
		}
	}
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(generic.DecInt(count))
}
