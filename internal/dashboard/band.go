package dashboard

// ProfitBand maps a report row's profit to its table color band
func ProfitBand(profit float64) string {
	switch {
	case profit <= -60:
		return "row-red"
	case profit <= -20:
		return "row-pink"
	case profit <= -5:
		return "row-lightpink"
	default:
		return "row-green"
	}
}

// CampaignBand maps a campaign's profit to its list color band. The
// campaign list only distinguishes losing campaigns from the rest.
func CampaignBand(profit float64) string {
	if profit < -60 {
		return "row-red"
	}
	return "row-green"
}
