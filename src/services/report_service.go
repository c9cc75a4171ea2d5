package services

import (
	"context"
	"fmt"
	"sort"

	"server/src/models"
	"server/src/schemas"
	"server/src/utils/render"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

type ReportServiceI interface {
	Summary(assets []models.Asset, categories []models.AssetCategory) *schemas.AssetSummary
	GenerateDashboardHTML(ctx context.Context, assets []models.Asset, categories []models.AssetCategory) (string, error)
	GenerateXLSX(ctx context.Context, assets []models.Asset, categories []models.AssetCategory) (*excelize.File, error)
	GeneratePDF(ctx context.Context, assets []models.Asset, categories []models.AssetCategory) ([]byte, error)
}

// ReportService is the read side of the dashboard: pure transforms over
// already-persisted assets, no remote calls.
type ReportService struct{}

func NewReportService() *ReportService {
	return &ReportService{}
}

// Summary computes net worth totals and the category breakdown.
func (rs *ReportService) Summary(assets []models.Asset, categories []models.AssetCategory) *schemas.AssetSummary {
	byID := make(map[int]models.AssetCategory, len(categories))
	for _, category := range categories {
		byID[category.ID] = category
	}

	var netWorth schemas.NetWorth
	totals := make(map[int]float64)
	for _, asset := range assets {
		if asset.IsLiability {
			netWorth.TotalLiabilities += asset.Value
		} else {
			netWorth.TotalAssets += asset.Value
			totals[asset.CategoryID] += asset.Value
		}
	}
	netWorth.NetWorth = netWorth.TotalAssets - netWorth.TotalLiabilities

	breakdown := make([]schemas.CategoryTotal, 0, len(totals))
	for categoryID, value := range totals {
		category, ok := byID[categoryID]
		if !ok {
			category = models.AssetCategory{Slug: "uncategorized", Name: "Uncategorized"}
		}
		breakdown = append(breakdown, schemas.CategoryTotal{
			Slug:  category.Slug,
			Name:  category.Name,
			Value: value,
		})
	}
	sort.Slice(breakdown, func(i, j int) bool { return breakdown[i].Value > breakdown[j].Value })

	return &schemas.AssetSummary{
		NetWorth:   netWorth,
		Categories: breakdown,
	}
}

// summaryDataframe builds a gota dataframe of per-category totals, used
// as the tabular backbone of the XLSX and PDF exports.
func (rs *ReportService) summaryDataframe(summary *schemas.AssetSummary) dataframe.DataFrame {
	names := make([]string, 0, len(summary.Categories))
	values := make([]float64, 0, len(summary.Categories))
	for _, category := range summary.Categories {
		names = append(names, category.Name)
		values = append(values, category.Value)
	}
	return dataframe.New(
		series.New(names, series.String, "Category"),
		series.New(values, series.Float, "Value"),
	)
}

// GenerateDashboardHTML renders the category pie chart and per-account
// bar chart for the dashboard.
func (rs *ReportService) GenerateDashboardHTML(ctx context.Context, assets []models.Asset, categories []models.AssetCategory) (string, error) {
	summary := rs.Summary(assets, categories)

	pieData := make(map[string]float64, len(summary.Categories))
	for _, category := range summary.Categories {
		pieData[category.Name] = category.Value
	}
	pie, err := render.PieChartHTML("Assets by Category", pieData)
	if err != nil {
		return "", err
	}

	accountTotals := make(map[string]float64)
	for _, asset := range assets {
		if asset.IsLiability {
			continue
		}
		name, _ := asset.Metadata["account_name"].(string)
		if name == "" {
			name = "Manual"
		}
		accountTotals[name] += asset.Value
	}
	labels := make([]string, 0, len(accountTotals))
	for name := range accountTotals {
		labels = append(labels, name)
	}
	sort.Strings(labels)
	values := make([]float64, 0, len(labels))
	for _, name := range labels {
		values = append(values, accountTotals[name])
	}
	bar, err := render.BarChartHTML("Value by Account", labels, values)
	if err != nil {
		return "", err
	}

	header := fmt.Sprintf("<h1>Net Worth: %.2f</h1>", summary.NetWorth.NetWorth)
	return header + pie + bar, nil
}

// GenerateXLSX exports the asset list plus the category summary.
func (rs *ReportService) GenerateXLSX(ctx context.Context, assets []models.Asset, categories []models.AssetCategory) (*excelize.File, error) {
	summary := rs.Summary(assets, categories)
	file := excelize.NewFile()

	sheet := "Assets"
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	headers := []string{"Name", "Value", "Category", "Liability", "Symbol", "Account"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	byID := make(map[int]models.AssetCategory, len(categories))
	for _, category := range categories {
		byID[category.ID] = category
	}
	for row, asset := range assets {
		symbol, _ := asset.Metadata["symbol"].(string)
		accountName, _ := asset.Metadata["account_name"].(string)
		values := []interface{}{
			asset.Name,
			asset.Value,
			byID[asset.CategoryID].Name,
			asset.IsLiability,
			symbol,
			accountName,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	summarySheet := "Summary"
	if _, err := file.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	df := rs.summaryDataframe(summary)
	for col, name := range df.Names() {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetCellValue(summarySheet, cell, name); err != nil {
			return nil, err
		}
	}
	records := df.Records()
	for row := 1; row < len(records); row++ {
		for col, value := range records[row] {
			cell, err := excelize.CoordinatesToCellName(col+1, row+1)
			if err != nil {
				return nil, err
			}
			if err := file.SetCellValue(summarySheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	return file, nil
}

// GeneratePDF renders the dashboard HTML to a PDF document.
func (rs *ReportService) GeneratePDF(ctx context.Context, assets []models.Asset, categories []models.AssetCategory) ([]byte, error) {
	html, err := rs.GenerateDashboardHTML(ctx, assets, categories)
	if err != nil {
		return nil, err
	}
	buffer, err := render.GeneratePDF([]string{html})
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
