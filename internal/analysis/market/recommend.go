package market

import (
	"fmt"

	"github.com/seenimoa/mandisense/pkg/models"
	"github.com/seenimoa/mandisense/pkg/utils"
)

func recommend(c models.Commodity, best models.RankedMarket) string {
	unit := c.Unit
	if unit == "" {
		unit = "unit"
	}
	name := utils.CommodityDisplayName(c.Name)

	if best.AboveSupport {
		return fmt.Sprintf("Sell %s at %s (%s): net price %s/%s after %s transport cost, at or above the support price of %s.",
			name, best.Name, best.District,
			utils.FormatINR(best.NetPrice), unit,
			utils.FormatINR(best.TransportCost),
			utils.FormatINR(c.SupportPrice))
	}
	return fmt.Sprintf("Best net price for %s is %s/%s at %s (%s), below the support price of %s. Consider selling through government procurement at the support price.",
		name, utils.FormatINR(best.NetPrice), unit,
		best.Name, best.District,
		utils.FormatINR(c.SupportPrice))
}
