package http

import (
	"encoding/json"
	"net/http"
	"petsit/pkg/config"
	apperrors "petsit/pkg/errors"
	"petsit/pkg/model"
	"strconv"
	"strings"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// ExtractActor reads the authenticated caller set by the gateway in front of
// the service.
func ExtractActor(r *http.Request) (model.Actor, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderActorID))
	if id == "" {
		return model.Actor{}, apperrors.Unauthorized("missing " + HeaderActorID + " header")
	}

	role := model.ActorRole(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorRole))))
	if !role.IsValid() {
		return model.Actor{}, apperrors.Forbidden("unknown actor role")
	}

	return model.Actor{ID: id, Role: role}, nil
}

// DecodeJSON decodes the request body into target, rejecting unknown fields.
func DecodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return apperrors.InvalidInput("invalid JSON body: " + err.Error())
	}
	return nil
}
