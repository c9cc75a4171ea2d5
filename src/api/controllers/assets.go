package controllers

import (
	"context"

	"server/src/models"
	"server/src/repositories"
	"server/src/schemas"
	"server/src/services"

	"github.com/xuri/excelize/v2"
)

type AssetsControllerI interface {
	GetAssets(ctx context.Context, userID string) ([]models.Asset, error)
	GetSummary(ctx context.Context, userID string) (*schemas.AssetSummary, error)
	GetCategories(ctx context.Context) ([]models.AssetCategory, error)
	ExportXLSX(ctx context.Context, userID string) (*excelize.File, error)
	ExportReportHTML(ctx context.Context, userID string) (string, error)
	ExportReportPDF(ctx context.Context, userID string) ([]byte, error)
}

type AssetsController struct {
	Reports    services.ReportServiceI
	Assets     repositories.AssetRepository
	Categories repositories.AssetCategoryRepository
}

func NewAssetsController(reports services.ReportServiceI, assets repositories.AssetRepository, categories repositories.AssetCategoryRepository) *AssetsController {
	return &AssetsController{
		Reports:    reports,
		Assets:     assets,
		Categories: categories,
	}
}

func (c *AssetsController) GetAssets(ctx context.Context, userID string) ([]models.Asset, error) {
	return c.Assets.GetByUserID(ctx, userID)
}

func (c *AssetsController) GetSummary(ctx context.Context, userID string) (*schemas.AssetSummary, error) {
	assets, categories, err := c.loadReportData(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.Reports.Summary(assets, categories), nil
}

func (c *AssetsController) GetCategories(ctx context.Context) ([]models.AssetCategory, error) {
	return c.Categories.GetAll(ctx)
}

func (c *AssetsController) ExportXLSX(ctx context.Context, userID string) (*excelize.File, error) {
	assets, categories, err := c.loadReportData(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.Reports.GenerateXLSX(ctx, assets, categories)
}

// ExportReportHTML renders the dashboard report (net worth header plus
// category and account charts) as a standalone HTML document.
func (c *AssetsController) ExportReportHTML(ctx context.Context, userID string) (string, error) {
	assets, categories, err := c.loadReportData(ctx, userID)
	if err != nil {
		return "", err
	}
	return c.Reports.GenerateDashboardHTML(ctx, assets, categories)
}

// ExportReportPDF renders the same dashboard report as a PDF document.
func (c *AssetsController) ExportReportPDF(ctx context.Context, userID string) ([]byte, error) {
	assets, categories, err := c.loadReportData(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.Reports.GeneratePDF(ctx, assets, categories)
}

func (c *AssetsController) loadReportData(ctx context.Context, userID string) ([]models.Asset, []models.AssetCategory, error) {
	assets, err := c.Assets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	categories, err := c.Categories.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	return assets, categories, nil
}
