package ledger

// ChartEntry is a predefined fund in the national catalogue.
type ChartEntry struct {
	Name        string   `json:"name"`
	Type        FundType `json:"type"`
	Description string   `json:"description"`
}

// DefaultFunds is the national fund catalogue seeded by `fund seed`.
// Seeding is idempotent: funds that already exist by name are skipped.
var DefaultFunds = []ChartEntry{
	{Name: "Fondo Nacional", Type: FundTypeNational, Description: "National share of local tithes and offerings"},
	{Name: "Misiones", Type: FundTypeDesignated, Description: "National and foreign missions"},
	{Name: "Lazos de Amor", Type: FundTypeDesignated, Description: "Benevolence fund"},
	{Name: "Mision Posible", Type: FundTypeDesignated, Description: "Church planting fund"},
	{Name: "APY", Type: FundTypeDesignated, Description: "APY national fund"},
	{Name: "IBA", Type: FundTypeDesignated, Description: "Bible institute fund"},
	{Name: "Caballeros", Type: FundTypeDesignated, Description: "Men's ministry fund"},
	{Name: "Damas", Type: FundTypeDesignated, Description: "Women's ministry fund"},
	{Name: "Jovenes", Type: FundTypeDesignated, Description: "Youth ministry fund"},
	{Name: "Ninos", Type: FundTypeDesignated, Description: "Children's ministry fund"},
	{Name: "Fondo General", Type: FundTypeGeneral, Description: "General operating fund"},
}

// LookupChartEntry finds a catalogue entry by name.
func LookupChartEntry(name string) *ChartEntry {
	for i := range DefaultFunds {
		if DefaultFunds[i].Name == name {
			return &DefaultFunds[i]
		}
	}
	return nil
}
