package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/simonvc/fundledger/internal/ledger"
)

func churchTreasurer(c *ledger.Church) ledger.Actor {
	return ledger.Actor{ID: "t-" + c.Name, Role: ledger.RoleTreasurer, ChurchID: &c.ID}
}

// Scenario: two named donors and one anonymous offering.
func TestCreateWorshipRecord(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := mustChurch(t, st, "Iglesia Central")
	actor := churchTreasurer(c)

	x := &ledger.Donor{ChurchID: c.ID, Name: "Maria Perez", NationalID: "001-0000001-1"}
	if err := st.CreateDonor(ctx, actor, x); err != nil {
		t.Fatalf("CreateDonor() error = %v", err)
	}

	rec, err := st.CreateWorshipRecord(ctx, actor, ledger.WorshipInput{
		ChurchID:    c.ID,
		ServiceDate: "2024-03-03",
		Attendance:  ledger.Attendance{Members: 80, Visitors: 5},
		Lines: []ledger.ContributionLine{
			{DonorID: &x.ID, Amounts: map[ledger.Category]decimal.Decimal{ledger.CategoryTithe: amt("10000")}},
			{DonorName: "Juan Rodriguez", Amounts: map[ledger.Category]decimal.Decimal{ledger.CategoryOffering: amt("5000")}},
			{Total: amt("2000")},
		},
	})
	if err != nil {
		t.Fatalf("CreateWorshipRecord() error = %v", err)
	}

	if !rec.Totals.Tithe.Equal(amt("10000")) || !rec.Totals.Offering.Equal(amt("5000")) {
		t.Errorf("totals = %+v, want tithe 10000 offering 5000", rec.Totals)
	}
	if !rec.AnonymousOffering.Equal(amt("2000")) {
		t.Errorf("anonymous = %s, want 2000", rec.AnonymousOffering)
	}
	if !rec.GrandTotal.Equal(amt("17000")) {
		t.Errorf("grand total = %s, want 17000", rec.GrandTotal)
	}
	if rec.TotalAttendance != 85 {
		t.Errorf("attendance = %d, want 85", rec.TotalAttendance)
	}

	got, err := st.GetWorshipRecord(ctx, actor, rec.ID)
	if err != nil {
		t.Fatalf("GetWorshipRecord() error = %v", err)
	}
	if len(got.Contributions) != 2 {
		t.Fatalf("contributions = %d, want 2", len(got.Contributions))
	}
	if got.Contributions[0].DonorID != x.ID {
		t.Errorf("first contribution donor = %d, want %d", got.Contributions[0].DonorID, x.ID)
	}

	donors, err := st.ListDonors(ctx, actor, c.ID, "juan")
	if err != nil {
		t.Fatalf("ListDonors() error = %v", err)
	}
	if len(donors) != 1 || donors[0].ID != got.Contributions[1].DonorID {
		t.Errorf("ListDonors(juan) = %+v, want the donor created for line 2", donors)
	}

	// No posting happens when a service is recorded.
	txns, _ := st.ListTransactions(ctx, TxnFilter{ChurchID: c.ID})
	if len(txns) != 0 {
		t.Errorf("worship record created %d transactions, want 0", len(txns))
	}
}

func TestWorshipGroupsCategoriesIntoBuckets(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := mustChurch(t, st, "Iglesia Central")
	actor := churchTreasurer(c)

	rec, err := st.CreateWorshipRecord(ctx, actor, ledger.WorshipInput{
		ChurchID:    c.ID,
		ServiceDate: "2024-03-10",
		Lines: []ledger.ContributionLine{{
			DonorName: "Ana Gomez",
			Amounts: map[ledger.Category]decimal.Decimal{
				ledger.CategoryLazosDeAmor: amt("100"),
				ledger.CategoryAPY:         amt("50"),
				ledger.CategoryDamas:       amt("25"),
			},
			Total: amt("175"),
		}},
	})
	if err != nil {
		t.Fatalf("CreateWorshipRecord() error = %v", err)
	}
	if !rec.Totals.Missions.Equal(amt("150")) || !rec.Totals.Other.Equal(amt("25")) {
		t.Errorf("totals = %+v, want missions 150 other 25", rec.Totals)
	}
	if len(rec.Contributions) != 3 {
		t.Errorf("contributions = %d, want one per category", len(rec.Contributions))
	}
	for _, c := range rec.Contributions {
		if c.Category == ledger.CategoryMissions || c.Category == ledger.CategoryOther {
			t.Errorf("contribution stored with bucket %s instead of its category", c.Category)
		}
	}
}

func TestWorshipRejectsForeignDonor(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c1 := mustChurch(t, st, "Iglesia Central")
	c2 := mustChurch(t, st, "Iglesia Norte")

	d := &ledger.Donor{ChurchID: c2.ID, Name: "Pedro"}
	if err := st.CreateDonor(ctx, churchTreasurer(c2), d); err != nil {
		t.Fatalf("CreateDonor() error = %v", err)
	}

	_, err := st.CreateWorshipRecord(ctx, churchTreasurer(c1), ledger.WorshipInput{
		ChurchID:    c1.ID,
		ServiceDate: "2024-03-10",
		Lines:       []ledger.ContributionLine{{DonorID: &d.ID, Total: amt("10")}},
	})
	if !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("CreateWorshipRecord() error = %v, want validation", err)
	}
	if got := ledger.FieldOf(err); got != "lines[0].donor_id" {
		t.Errorf("field = %q, want lines[0].donor_id", got)
	}

	_, err = st.CreateWorshipRecord(ctx, churchTreasurer(c1), ledger.WorshipInput{
		ChurchID:    c2.ID,
		ServiceDate: "2024-03-10",
		Lines:       []ledger.ContributionLine{{Total: amt("10")}},
	})
	if !errors.Is(err, ledger.ErrForbidden) {
		t.Errorf("recording for another church error = %v, want forbidden", err)
	}
}

func TestResolveDonor(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := mustChurch(t, st, "Iglesia Central")
	actor := churchTreasurer(c)

	first, err := st.ResolveDonor(ctx, actor, c.ID, "Luis  Martinez", "")
	if err != nil {
		t.Fatalf("ResolveDonor() error = %v", err)
	}
	again, err := st.ResolveDonor(ctx, actor, c.ID, "luis martinez", "")
	if err != nil {
		t.Fatalf("ResolveDonor() error = %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("name lookup created donor %d, want existing %d", again.ID, first.ID)
	}

	byID, _ := st.ResolveDonor(ctx, actor, c.ID, "Luis M.", "402-1234567-8")
	sameID, _ := st.ResolveDonor(ctx, actor, c.ID, "Luis Martinez", "402-1234567-8")
	if byID.ID != sameID.ID {
		t.Errorf("national id lookup returned %d and %d", byID.ID, sameID.ID)
	}

	err = st.CreateDonor(ctx, actor, &ledger.Donor{ChurchID: c.ID, Name: "Otro", NationalID: "402-1234567-8"})
	if !errors.Is(err, ledger.ErrConflict) {
		t.Errorf("duplicate national id error = %v, want conflict", err)
	}
}

func recordService(t *testing.T, st *Store, c *ledger.Church, date string, tithe, offering, anon string) {
	t.Helper()
	in := ledger.WorshipInput{
		ChurchID:          c.ID,
		ServiceDate:       date,
		AnonymousOffering: amt(anon),
		Lines: []ledger.ContributionLine{{
			DonorName: "Maria Perez",
			Amounts: map[ledger.Category]decimal.Decimal{
				ledger.CategoryTithe:    amt(tithe),
				ledger.CategoryOffering: amt(offering),
			},
		}},
	}
	if _, err := st.CreateWorshipRecord(context.Background(), churchTreasurer(c), in); err != nil {
		t.Fatalf("record service %s: %v", date, err)
	}
}

func TestSubmitReportPostsBucketTotals(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := mustChurch(t, st, "Iglesia Central")
	general := mustFund(t, st, "Fondo General", "")
	national := mustFund(t, st, "Fondo Nacional", "")

	recordService(t, st, c, "2024-03-03", "1000", "200", "50")
	recordService(t, st, c, "2024-03-10", "500", "100", "0")
	recordService(t, st, c, "2024-04-07", "999", "999", "0")

	rep, err := st.SubmitReport(ctx, churchTreasurer(c), ledger.ReportRequest{
		ChurchID: c.ID,
		Month:    3,
		Year:     2024,
		Postings: map[ledger.Bucket]int64{
			ledger.BucketTithe:    national.ID,
			ledger.BucketOffering: general.ID,
		},
	})
	if err != nil {
		t.Fatalf("SubmitReport() error = %v", err)
	}
	if rep.WorshipCount != 2 {
		t.Errorf("worship count = %d, want 2", rep.WorshipCount)
	}
	if !rep.Totals.Tithe.Equal(amt("1500")) || !rep.Totals.Offering.Equal(amt("350")) {
		t.Errorf("totals = %+v, want tithe 1500 offering 350", rep.Totals)
	}
	if len(rep.Transactions) != 2 {
		t.Fatalf("report postings = %d, want 2", len(rep.Transactions))
	}
	for _, txn := range rep.Transactions {
		if txn.ReportID == nil || *txn.ReportID != rep.ID || txn.Date != "2024-03-31" {
			t.Errorf("posting %+v not tagged with report %s on 2024-03-31", txn, rep.ID)
		}
	}
	assertBalance(t, st, national.ID, "1500")
	assertBalance(t, st, general.ID, "350")

	got, err := st.GetReport(ctx, churchTreasurer(c), rep.ID)
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if len(got.Transactions) != 2 || !got.Total.Equal(amt("1850")) {
		t.Errorf("GetReport() = %d postings total %s, want 2 and 1850", len(got.Transactions), got.Total)
	}
}

// Scenario: concurrent submissions for one church and month.
func TestConcurrentReportSubmissionConflicts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := mustChurch(t, st, "Iglesia Central")
	f := mustFund(t, st, "Fondo General", "")
	recordService(t, st, c, "2024-03-03", "100", "10", "0")

	req := ledger.ReportRequest{
		ChurchID: c.ID,
		Month:    3,
		Year:     2024,
		Postings: map[ledger.Bucket]int64{ledger.BucketTithe: f.ID},
	}

	const n = 6
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.SubmitReport(ctx, churchTreasurer(c), req)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ledger.ErrConflict):
			t.Errorf("SubmitReport() error = %v, want conflict", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d submissions succeeded, want 1", succeeded)
	}
	assertBalance(t, st, f.ID, "100")

	reports, err := st.ListReports(ctx, admin, ReportFilter{ChurchID: c.ID})
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	if len(reports) != 1 {
		t.Errorf("ListReports() = %d reports, want 1", len(reports))
	}
}
