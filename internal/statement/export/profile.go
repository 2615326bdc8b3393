package export

import (
	"fmt"
	"os"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	statement "billing-desk/internal/statement/domain"
)

// Colors are hex codes used by the spreadsheet and print renderings.
type Colors struct {
	Debit       string `yaml:"debit"`
	DebitFill   string `yaml:"debit_fill"`
	Credit      string `yaml:"credit"`
	CreditFill  string `yaml:"credit_fill"`
	Balance     string `yaml:"balance"`
	BalanceFill string `yaml:"balance_fill"`
	Header      string `yaml:"header"`
	HeaderFill  string `yaml:"header_fill"`
}

// Labels holds every caption an export prints.
type Labels struct {
	Sheet        string            `yaml:"sheet"`
	Title        string            `yaml:"title"`
	Client       string            `yaml:"client"`
	Filter       string            `yaml:"filter"`
	Generated    string            `yaml:"generated"`
	Seq          string            `yaml:"seq"`
	Date         string            `yaml:"date"`
	Description  string            `yaml:"description"`
	Type         string            `yaml:"type"`
	Debit        string            `yaml:"debit"`
	Credit       string            `yaml:"credit"`
	Balance      string            `yaml:"balance"`
	Amount       string            `yaml:"amount"`
	Payment      string            `yaml:"payment"`
	Allocation   string            `yaml:"allocation"`
	TotalDebit   string            `yaml:"total_debit"`
	TotalCredit  string            `yaml:"total_credit"`
	FinalBalance string            `yaml:"final_balance"`
	Filters      map[string]string `yaml:"filters"`
	Types        map[string]string `yaml:"types"`
}

// Profile configures how statements are rendered.
type Profile struct {
	CompanyName string `yaml:"company_name"`
	Locale      string `yaml:"locale"`
	Lang        string `yaml:"lang"`
	Direction   string `yaml:"direction"`
	FontPath    string `yaml:"font_path"`
	FontFamily  string `yaml:"font_family"`
	Colors      Colors `yaml:"colors"`
	Labels      Labels `yaml:"labels"`
}

// DefaultProfile returns the Arabic right-to-left profile.
func DefaultProfile() Profile {
	return Profile{
		Locale:    "en",
		Lang:      "ar",
		Direction: "rtl",
		Colors: Colors{
			Debit:       "#C62828",
			DebitFill:   "#FDECEA",
			Credit:      "#2E7D32",
			CreditFill:  "#E8F5E9",
			Balance:     "#1565C0",
			BalanceFill: "#E3F2FD",
			Header:      "#FFFFFF",
			HeaderFill:  "#37474F",
		},
		Labels: Labels{
			Sheet:        "كشف الحساب",
			Title:        "كشف حساب العميل",
			Client:       "العميل",
			Filter:       "التصفية",
			Generated:    "تاريخ الإصدار",
			Seq:          "#",
			Date:         "التاريخ",
			Description:  "البيان",
			Type:         "النوع",
			Debit:        "مدين",
			Credit:       "دائن",
			Balance:      "الرصيد",
			Amount:       "المبلغ",
			Payment:      "دفعة",
			Allocation:   "تخصيص رصيد",
			TotalDebit:   "إجمالي المدين",
			TotalCredit:  "إجمالي الدائن",
			FinalBalance: "الرصيد النهائي",
			Filters: map[string]string{
				string(statement.FilterAll):    "الكل",
				string(statement.FilterUnpaid): "غير المسدد",
				string(statement.FilterPaid):   "المسدد",
			},
			Types: map[string]string{
				string(statement.ItemTypeReceivable):       "مستحق",
				string(statement.ItemTypePayment):          "دفعة",
				string(statement.ItemTypeCredit):           "رصيد دائن",
				string(statement.ItemTypeCreditAllocation): "تخصيص رصيد",
				string(statement.ItemTypeAdjustment):       "تسوية",
			},
		},
	}
}

// LatinLabels are the English captions. Profiles for a non-Arabic language start from them.
func LatinLabels() Labels {
	return Labels{
		Sheet:        "Statement",
		Title:        "Client Statement",
		Client:       "Client",
		Filter:       "Filter",
		Generated:    "Generated",
		Seq:          "#",
		Date:         "Date",
		Description:  "Description",
		Type:         "Type",
		Debit:        "Debit",
		Credit:       "Credit",
		Balance:      "Balance",
		Amount:       "Amount",
		Payment:      "Payment",
		Allocation:   "Credit allocation",
		TotalDebit:   "Total debit",
		TotalCredit:  "Total credit",
		FinalBalance: "Final balance",
		Filters: map[string]string{
			string(statement.FilterAll):    "All",
			string(statement.FilterUnpaid): "Unpaid",
			string(statement.FilterPaid):   "Paid",
		},
		Types: map[string]string{
			string(statement.ItemTypeReceivable):       "Receivable",
			string(statement.ItemTypePayment):          "Payment",
			string(statement.ItemTypeCredit):           "Credit",
			string(statement.ItemTypeCreditAllocation): "Credit allocation",
			string(statement.ItemTypeAdjustment):       "Adjustment",
		},
	}
}

// LoadProfile reads a YAML profile over the defaults. An empty path yields the defaults.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("export profile: %w", err)
	}
	var head struct {
		Lang string `yaml:"lang"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Profile{}, fmt.Errorf("export profile: %w", err)
	}
	if head.Lang != "" && !arabic(head.Lang) {
		profile.Labels = LatinLabels()
		profile.Direction = "ltr"
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("export profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// Validate checks the locale and direction.
func (p Profile) Validate() error {
	if _, err := language.Parse(p.Locale); err != nil {
		return fmt.Errorf("export profile: locale %q: %w", p.Locale, err)
	}
	switch p.Direction {
	case "rtl", "ltr":
	default:
		return fmt.Errorf("export profile: direction must be rtl or ltr, got %q", p.Direction)
	}
	return nil
}

func arabic(lang string) bool {
	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base.String() == "ar"
}

// RTL reports whether the profile lays out right to left.
func (p Profile) RTL() bool {
	return p.Direction == "rtl"
}

// FilterLabel returns the caption for a filter.
func (l Labels) FilterLabel(f statement.Filter) string {
	if label, ok := l.Filters[string(f)]; ok && label != "" {
		return label
	}
	return string(f)
}

// TypeLabel returns the badge caption for an item type. Unknown types pass through.
func (l Labels) TypeLabel(t statement.ItemType) string {
	if label, ok := l.Types[string(t)]; ok && label != "" {
		return label
	}
	return string(t)
}

// DetailLabel returns the caption for a detail row kind.
func (l Labels) DetailLabel(kind statement.RowKind) string {
	switch kind {
	case statement.RowPayment:
		return l.Payment
	case statement.RowAllocation:
		return l.Allocation
	default:
		return ""
	}
}
