package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCheckTransition(t *testing.T) {
	allowed := map[[2]EventStatus]bool{}
	for _, tr := range Transitions {
		allowed[[2]EventStatus{tr.From, tr.To}] = true
	}

	for _, from := range AllEventStatuses {
		for _, to := range AllEventStatuses {
			err := CheckTransition(from, to)
			want := allowed[[2]EventStatus{from, to}]
			if want && err != nil {
				t.Errorf("CheckTransition(%s, %s) error = %v, want nil", from, to, err)
			}
			if !want && !errors.Is(err, ErrConflict) {
				t.Errorf("CheckTransition(%s, %s) error = %v, want conflict", from, to, err)
			}
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, tr := range Transitions {
		if tr.From.Terminal() {
			t.Errorf("terminal status %s has transition to %s", tr.From, tr.To)
		}
	}
	for _, s := range []EventStatus{StatusApproved, StatusRejected, StatusCancelled} {
		if !s.Terminal() || s.Editable() {
			t.Errorf("%s: Terminal() = %v, Editable() = %v", s, s.Terminal(), s.Editable())
		}
	}
	if !StatusPendingRevision.Editable() || StatusSubmitted.Editable() {
		t.Error("only draft and pending_revision are editable")
	}
}

func TestComputeTotals(t *testing.T) {
	d := decimal.RequireFromString
	items := []BudgetItem{{ProjectedAmount: d("1000")}, {ProjectedAmount: d("250.50")}}
	actuals := []EventActual{
		{LineType: LineIncome, Amount: d("400")},
		{LineType: LineExpense, Amount: d("900.25")},
		{LineType: LineExpense, Amount: d("100")},
	}
	got := ComputeTotals(items, actuals)

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"projected", got.Projected, "1250.50"},
		{"income", got.Income, "400"},
		{"expense", got.Expense, "1000.25"},
		{"net", got.Net, "-600.25"},
		{"variance", got.Variance, "250.25"},
	}
	for _, c := range checks {
		if !c.got.Equal(d(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestApprovalPosting(t *testing.T) {
	e := &FundEvent{ID: "ev-1", FundID: 7, Name: "Retreat", EventDate: "2024-02-10"}

	out := ApprovalPosting(e, decimal.RequireFromString("-75"))
	if !out.AmountOut.Equal(decimal.RequireFromString("75")) || !out.AmountIn.IsZero() {
		t.Errorf("negative net = in %s out %s, want out 75", out.AmountIn, out.AmountOut)
	}
	if *out.EventID != "ev-1" || out.Concept != "Event: Retreat" || out.Date != "2024-02-10" {
		t.Errorf("posting = %+v", out)
	}

	zero := ApprovalPosting(e, decimal.Zero)
	if err := zero.Validate(); err != nil {
		t.Errorf("zero approval posting Validate() error = %v", err)
	}
}

func TestEventInputValidate(t *testing.T) {
	tests := []struct {
		name  string
		in    EventInput
		field string
	}{
		{"ok", EventInput{FundID: 1, Name: "Camp", EventDate: "2024-01-01"}, ""},
		{"no fund", EventInput{Name: "Camp", EventDate: "2024-01-01"}, "fund_id"},
		{"blank name", EventInput{FundID: 1, Name: "  ", EventDate: "2024-01-01"}, "name"},
		{"bad date", EventInput{FundID: 1, Name: "Camp", EventDate: "01/01/2024"}, "event_date"},
		{"zero budget", EventInput{FundID: 1, Name: "Camp", EventDate: "2024-01-01",
			BudgetItems: []BudgetItemInput{{Category: "food"}}}, "projected_amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if got := FieldOf(err); got != tt.field || (tt.field == "" && err != nil) {
				t.Errorf("Validate() error = %v, want field %q", err, tt.field)
			}
		})
	}
}
