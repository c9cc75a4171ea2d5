package controllers

import (
	"server/src/clients/snaptrade"
	"server/src/repositories"
	"server/src/services"
)

type IController interface {
	SnapTradeControllerI
	AssetsControllerI
}

type Controller struct {
	*SnapTradeController
	*AssetsController
}

func NewController(
	client snaptrade.SnapTradeServiceClientI,
	credentials services.CredentialServiceI,
	holdings services.HoldingsServiceI,
	sync services.SyncServiceI,
	reports services.ReportServiceI,
	assets repositories.AssetRepository,
	categories repositories.AssetCategoryRepository,
) *Controller {
	return &Controller{
		SnapTradeController: NewSnapTradeController(client, credentials, holdings, sync),
		AssetsController:    NewAssetsController(reports, assets, categories),
	}
}
