package controllers

import (
	"net/http"

	"github.com/grattia/grattia-backend/api/responses"
	"github.com/grattia/grattia-backend/api/validators"
	"github.com/grattia/grattia-backend/internal/companies"
	"github.com/grattia/grattia-backend/pkg/logger"
)

func CompanyGet(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, err := currentCompanyID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		company, err := svc.Get(r.Context(), companyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, company)
	}
}

type companyUpdateRequest struct {
	Name                   *string `json:"name,omitempty"`
	TeamMemberMonthlyLimit *int64  `json:"team_member_monthly_limit,omitempty"`
	AllocationDay          *int    `json:"allocation_day,omitempty" validate:"omitempty,min=1,max=28"`
}

func CompanyUpdate(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, err := currentCompanyID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req companyUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		company, err := svc.Update(r.Context(), companyID, companies.UpdateInput{
			Name:                   req.Name,
			TeamMemberMonthlyLimit: req.TeamMemberMonthlyLimit,
			AllocationDay:          req.AllocationDay,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, company)
	}
}

func CompanyDelete(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, err := currentCompanyID(r)
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
