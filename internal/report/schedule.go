// Package report renders computed loan schedules into documents for download.
package report

import (
	"bytes"
	"fmt"

	"github.com/Dan9191/loan-service/internal/amortization"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	scheduleSheet = "schedule"
	summarySheet  = "summary"
	dateLayout    = "02-01-2006"
)

var scheduleHeader = []string{
	"Period", "Due date", "Payment", "Interest", "Principal", "Balance", "Paid", "Pending", "Status",
}

// BuildScheduleXLSX renders the annotated schedule of a loan as a workbook
// with a "schedule" sheet and a "summary" sheet.
func BuildScheduleXLSX(sched *models.LoanSchedule) ([]byte, error) {
	if sched == nil || sched.Loan == nil {
		return nil, fmt.Errorf("report: schedule has no loan")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", scheduleSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(scheduleSheet, "A1", &scheduleHeader); err != nil {
		return nil, err
	}
	for i, row := range sched.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := scheduleRow(row)
		if err := f.SetSheetRow(scheduleSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	if err := writeSummary(f, sched); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func scheduleRow(row amortization.AnnotatedInstallment) []any {
	return []any{
		row.Period,
		row.DueDate.Format(dateLayout),
		FormatMoney(row.ScheduledPayment),
		FormatMoney(row.Interest),
		FormatMoney(row.Principal),
		FormatMoney(row.Balance),
		FormatMoney(row.Paid),
		FormatMoney(row.Pending),
		string(row.Status),
	}
}

func writeSummary(f *excelize.File, sched *models.LoanSchedule) error {
	loan := sched.Loan
	sum := sched.Summary

	title := "Loan schedule"
	if loan.ID != 0 {
		title = fmt.Sprintf("Loan schedule #%d", loan.ID)
	}
	nextDue := ""
	if sum.NextDue != nil {
		nextDue = fmt.Sprintf("#%d on %s", sum.NextDue.Period, sum.NextDue.DueDate.Format(dateLayout))
	}

	rows := [][]any{
		{title},
		{},
		{"Client", loan.ClientName},
		{"Principal", FormatMoney(loan.Principal)},
		{"Annual rate (%)", loan.AnnualRate.String()},
		{"Term (months)", loan.TermMonths},
		{"Payments per year", loan.PaymentsPerYear},
		{"Disbursed", loan.DisbursementDate.Format(dateLayout)},
		{"As of", sched.AsOf.Format(dateLayout)},
		{"Grace days", sched.GraceDays},
		{},
		{"Installments", sum.Installments},
		{"Total scheduled", FormatMoney(sum.TotalScheduled)},
		{"Total interest", FormatMoney(sum.TotalInterest)},
		{"Total paid", FormatMoney(sum.TotalPaid)},
		{"Total pending", FormatMoney(sum.TotalPending)},
		{"Paid in full", sum.PaidInFull},
		{"Overdue installments", sum.Overdue},
		{"Overdue amount", FormatMoney(sum.OverdueAmount)},
		{"Overpayment", FormatMoney(sum.Overpayment)},
		{"Next due", nextDue},
	}
	for i, values := range rows {
		if len(values) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}
