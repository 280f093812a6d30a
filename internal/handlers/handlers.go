package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Clemergorges/globalsecure-sub002/configs"
	"github.com/Clemergorges/globalsecure-sub002/internal/httputil"
	"github.com/Clemergorges/globalsecure-sub002/internal/logger"
	appmw "github.com/Clemergorges/globalsecure-sub002/internal/middleware"
	"github.com/Clemergorges/globalsecure-sub002/internal/models"
	"github.com/Clemergorges/globalsecure-sub002/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	var user models.User
	if err := store.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	claims := jwt.MapClaims{
		"sub": user.ID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(configs.AppConfig.JWT.SECRET))
	if err != nil {
		logger.Log.Error("failed to sign jwt", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: signed})
}

func MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := appmw.UserID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var user models.User
	if err := store.DB.First(&user, userID).Error; err != nil {
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

type accountResponse struct {
	ID       uint              `json:"id"`
	Tier     int               `json:"tier"`
	Balances map[string]string `json:"balances"`
}

func GetAccountsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := appmw.UserID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var accounts []models.Account
	if err := store.DB.Where("user_id = ?", userID).Find(&accounts).Error; err != nil {
		logger.Log.Error("failed to fetch accounts", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch accounts")
		return
	}

	ids := make([]uint64, 0, len(accounts))
	for _, acc := range accounts {
		ids = append(ids, uint64(acc.ID))
	}
	var balances []models.Balance
	if len(ids) > 0 {
		if err := store.DB.Where("account_id IN ?", ids).Find(&balances).Error; err != nil {
			logger.Log.Error("failed to fetch balances", zap.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch balances")
			return
		}
	}
	byAccount := groupBalances(balances)

	out := make([]accountResponse, 0, len(accounts))
	for _, acc := range accounts {
		resp := accountResponse{ID: acc.ID, Tier: acc.Tier, Balances: byAccount[uint64(acc.ID)]}
		if resp.Balances == nil {
			resp.Balances = map[string]string{}
		}
		out = append(out, resp)
	}

	httputil.WriteJSON(w, http.StatusOK, out)
}

// groupBalances indexes balance rows by account id as currency -> amount maps.
func groupBalances(balances []models.Balance) map[uint64]map[string]string {
	out := make(map[uint64]map[string]string)
	for _, b := range balances {
		if out[b.AccountID] == nil {
			out[b.AccountID] = make(map[string]string)
		}
		out[b.AccountID][b.Currency] = b.Amount.String()
	}
	return out
}

// ownedAccount loads the {id} path account and verifies it belongs to the
// authenticated user. Writes the error response itself on failure.
func ownedAccount(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	userID, ok := appmw.UserID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid account id")
		return nil, false
	}

	var acc models.Account
	if err := store.DB.First(&acc, id).Error; err != nil {
		httputil.WriteError(w, http.StatusNotFound, "account not found")
		return nil, false
	}
	if acc.UserID != userID {
		httputil.WriteError(w, http.StatusForbidden, "account does not belong to user")
		return nil, false
	}
	return &acc, true
}

func AccountBalanceHandler(w http.ResponseWriter, r *http.Request) {
	acc, ok := ownedAccount(w, r)
	if !ok {
		return
	}

	var balances []models.Balance
	if err := store.DB.Where("account_id = ?", acc.ID).Find(&balances).Error; err != nil {
		logger.Log.Error("failed to fetch balances", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch balances")
		return
	}

	out := make(map[string]string, len(balances))
	for _, b := range balances {
		out[b.Currency] = b.Amount.String()
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type movementResponse struct {
	TransferID string    `json:"transfer_id"`
	Direction  string    `json:"direction"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MovementsHandler lists an account's own movement history. Counterparty
// details are not included; masking policy beyond that is a presentation
// concern of the consuming client.
func MovementsHandler(w http.ResponseWriter, r *http.Request) {
	acc, ok := ownedAccount(w, r)
	if !ok {
		return
	}

	var rows []models.Movement
	if err := store.DB.Where("account_id = ?", acc.ID).Order("occurred_at DESC").Limit(100).Find(&rows).Error; err != nil {
		logger.Log.Error("failed to fetch movements", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch movements")
		return
	}

	out := make([]movementResponse, 0, len(rows))
	for _, m := range rows {
		out = append(out, movementResponse{
			TransferID: m.TransferID.String(),
			Direction:  m.Direction,
			Amount:     m.Amount.String(),
			Currency:   m.Currency,
			OccurredAt: m.OccurredAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
