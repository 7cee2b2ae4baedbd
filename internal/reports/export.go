package reports

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheet struct {
	name string
	rows [][]any
}

// XReportWorkbook renders the X-report as summary, top item and low stock sheets.
func XReportWorkbook(r XReport) (*bytes.Buffer, error) {
	summary := [][]any{
		{"Date", r.Date},
		{"Total orders", r.TotalOrders},
		{"Total revenue", r.TotalRevenue.InexactFloat64()},
		{"Items sold", r.TotalItems},
		{"Employees", r.EmployeeCount},
		{"Average wage", r.AvgWage.InexactFloat64()},
	}

	top := [][]any{{"Product", "Quantity"}}
	for _, it := range r.TopItems {
		top = append(top, []any{it.ProductName, it.Quantity})
	}

	low := [][]any{{"Ingredient", "Quantity"}}
	for _, it := range r.LowStock {
		low = append(low, []any{it.Name, it.Quantity})
	}

	return workbook([]sheet{
		{name: "Summary", rows: summary},
		{name: "Top Items", rows: top},
		{name: "Low Stock", rows: low},
	})
}

func ProductUsageWorkbook(r ProductUsage) (*bytes.Buffer, error) {
	products := [][]any{{"Product", "Quantity"}}
	for _, it := range r.ProductsSold {
		products = append(products, []any{it.ProductName, it.Quantity})
	}
	products = append(products, []any{"Total", r.TotalProducts})

	ingredients := [][]any{{"Ingredient", "Quantity"}}
	for _, u := range r.IngredientsUsed {
		ingredients = append(ingredients, []any{u.Name, u.Quantity})
	}
	ingredients = append(ingredients, []any{"Total", r.TotalIngredients})

	return workbook([]sheet{
		{name: "Products Sold", rows: products},
		{name: "Ingredients Used", rows: ingredients},
	})
}

func workbook(sheets []sheet) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return nil, err
		}

		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return nil, fmt.Errorf("sheet %s row %d: %w", s.name, r+1, err)
			}
		}
	}

	return f.WriteToBuffer()
}
