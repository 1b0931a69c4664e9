package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grattia/grattia-backend/api/middleware"
	"github.com/grattia/grattia-backend/api/responses"
	"github.com/grattia/grattia-backend/api/validators"
	"github.com/grattia/grattia-backend/internal/catalog"
	"github.com/grattia/grattia-backend/internal/companies"
	"github.com/grattia/grattia-backend/internal/platform"
	"github.com/grattia/grattia-backend/pkg/enums"
	pkgerrors "github.com/grattia/grattia-backend/pkg/errors"
	"github.com/grattia/grattia-backend/pkg/logger"
)

func platformActor(r *http.Request) (platform.Actor, error) {
	userID, err := currentUserID(r)
	if err != nil {
		return platform.Actor{}, err
	}
	return platform.Actor{
		UserID:        userID,
		PlatformAdmin: middleware.PlatformAdminFromContext(r.Context()),
	}, nil
}

type platformCompanyCreateRequest struct {
	Name                   string `json:"name" validate:"required"`
	Environment            string `json:"environment,omitempty"`
	TeamMemberMonthlyLimit int64  `json:"team_member_monthly_limit" validate:"min=0"`
	AllocationDay          int    `json:"allocation_day,omitempty" validate:"omitempty,min=1,max=28"`
}

func PlatformCompanyCreate(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req platformCompanyCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		company, err := svc.Create(r.Context(), companies.CreateInput{
			Name:                   req.Name,
			Environment:            enums.Environment(req.Environment),
			TeamMemberMonthlyLimit: req.TeamMemberMonthlyLimit,
			AllocationDay:          req.AllocationDay,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, company)
	}
}

func PlatformCompanyDelete(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, err := pathUUID(r, "companyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.BackupAndDelete(r.Context(), companyID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type platformPointsRequest struct {
	Amount      int64  `json:"amount" validate:"required,min=1"`
	Operation   string `json:"operation" validate:"required"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

// PlatformPointsAdjust grants or removes points on a company balance, with an
// audit entry written in the same transaction.
func PlatformPointsAdjust(svc platform.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := platformActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		companyID, err := pathUUID(r, "companyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req platformPointsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		operation, err := platform.ParseOperation(req.Operation)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid operation"))
			return
		}

		result, err := svc.Adjust(r.Context(), actor, platform.AdjustInput{
			CompanyID:   companyID,
			Amount:      req.Amount,
			Operation:   operation,
			Description: req.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type platformCatalogImportRequest struct {
	CompanyID  *uuid.UUID      `json:"company_id,omitempty"`
	Provider   string          `json:"provider" validate:"required"`
	ProductID  string          `json:"product_id" validate:"required"`
	Multiplier decimal.Decimal `json:"multiplier" validate:"required"`
	Stock      *int64          `json:"stock,omitempty"`
}

// PlatformCatalogImport imports a provider product either into one company's
// catalog or, when company_id is omitted, into the global catalog every tenant
// sees.
func PlatformCatalogImport(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req platformCatalogImportRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		provider, err := enums.ParseRewardProvider(req.Provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider"))
			return
		}

		reward, err := svc.Import(r.Context(), catalog.ImportInput{
			CompanyID:  req.CompanyID,
			Provider:   provider,
			ProductID:  req.ProductID,
			Multiplier: req.Multiplier,
			Stock:      req.Stock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, reward)
	}
}
