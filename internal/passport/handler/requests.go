package handler

import (
	"provenant/internal/passport/models"
	id "provenant/pkg/domain"
)

type CreatePassportRequest struct {
	PackageKey  string `json:"package_key"`
	MaterialID  string `json:"material_id"`
	DataLocator string `json:"data_locator"`
	LabIdentity string `json:"lab_identity"`
}

func (r CreatePassportRequest) toModel() (models.CreateRequest, error) {
	lab, err := id.OptionalIdentity(r.LabIdentity)
	if err != nil {
		return models.CreateRequest{}, err
	}
	return models.CreateRequest{
		PackageKey:  r.PackageKey,
		MaterialID:  r.MaterialID,
		DataLocator: r.DataLocator,
		LabIdentity: lab,
	}, nil
}

type UpdateLocatorRequest struct {
	DataLocator string `json:"data_locator"`
}

type HashRequest struct {
	Hash string `json:"hash"`
}

type FinalizeRequest struct {
	Grade             string `json:"grade"`
	CertificationHash string `json:"certification_hash"`
}

type TransferRequest struct {
	NewOwner string `json:"new_owner"`
}

type PassportListResponse struct {
	PassportIDs []id.PassportID `json:"passport_ids"`
}
