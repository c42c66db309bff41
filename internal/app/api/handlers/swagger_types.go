package handlers

import (
	"github.com/fatflowers/entitlement/internal/app/service/lifecycle"
	"github.com/fatflowers/entitlement/internal/app/service/listing"
	"github.com/fatflowers/entitlement/internal/app/service/promotion"
	"github.com/fatflowers/entitlement/internal/app/service/quota"
	"github.com/fatflowers/entitlement/internal/app/service/statistics"
	"github.com/fatflowers/entitlement/internal/models"
	"github.com/fatflowers/entitlement/pkg/response"
	"github.com/fatflowers/entitlement/pkg/types"
)

// Envelopes below exist for the generated API documentation only.

// RespError is the envelope of a failed request.
type RespError struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    response.ErrorDetail     `json:"data"`
}

type RespHealth struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    HealthStatus             `json:"data"`
}

type RespSubscription struct {
	Code    response.APIResponseCode   `json:"code"`
	Message string                     `json:"message"`
	Data    lifecycle.SubscriptionView `json:"data"`
}

type RespTransition struct {
	Code    response.APIResponseCode   `json:"code"`
	Message string                     `json:"message"`
	Data    lifecycle.TransitionResult `json:"data"`
}

type RespHistoryEntry struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.PackageHistory    `json:"data"`
}

type RespHistory struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.PackageHistory  `json:"data"`
}

type RespAvailablePostTypes struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    []quota.AvailablePostType `json:"data"`
}

type RespDecision struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    quota.Decision           `json:"data"`
}

type RespConsumption struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    quota.Consumption        `json:"data"`
}

type RespAttach struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    listing.AttachResult     `json:"data"`
}

type RespListing struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Listing           `json:"data"`
}

type RespListingView struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    listing.View             `json:"data"`
}

type RespPromotion struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    promotion.Result         `json:"data"`
}

type RespPlans struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []types.PackagePlan      `json:"data"`
}

type RespPostTypes struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []types.PostType         `json:"data"`
}

type RespSweep struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    SweepResponse            `json:"data"`
}

type RespStatistic struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    statistics.StatisticResponse `json:"data"`
}

type RespScanHistory struct {
	Code    response.APIResponseCode       `json:"code"`
	Message string                         `json:"message"`
	Data    statistics.ScanHistoryResponse `json:"data"`
}
