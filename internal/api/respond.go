package api

import (
	"encoding/json"
	"net/http"

	"coinswiper/internal/domain"
)

// Pagination describes one page of a listing response.
type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

func paginationFor(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1 && total > 0,
	}
}

// envelope is the uniform success payload.
type envelope struct {
	Status     string      `json:"status"`
	Data       interface{} `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Filters    interface{} `json:"filters,omitempty"`
	Sorting    interface{} `json:"sorting,omitempty"`
}

// errorBody is the uniform error payload.
type errorBody struct {
	Status string    `json:"status"`
	Error  errorInfo `json:"error"`
}

type errorInfo struct {
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, code int, data interface{}) {
	writeJSON(w, code, envelope{Status: "success", Data: data})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorBody{Status: "error", Error: errorInfo{Message: message}})
}

// writeFieldErrors reports per-field validation failures. Malformed query
// parameters get 400, semantically invalid request bodies get 422.
func writeFieldErrors(w http.ResponseWriter, code int, details map[string]string) {
	writeJSON(w, code, errorBody{
		Status: "error",
		Error:  errorInfo{Message: "validation failed", Details: details},
	})
}

// tokenDTO is the wire shape of a token record.
type tokenDTO struct {
	ID                string `json:"id"`
	PairAddress       string `json:"pairAddress"`
	BaseTokenAddress  string `json:"baseTokenAddress"`
	BaseTokenName     string `json:"baseTokenName"`
	BaseTokenSymbol   string `json:"baseTokenSymbol"`
	QuoteTokenAddress string `json:"quoteTokenAddress"`
	QuoteTokenName    string `json:"quoteTokenName"`
	QuoteTokenSymbol  string `json:"quoteTokenSymbol"`
	DexID             string `json:"dexId"`

	PriceUSD string `json:"priceUsd"`
	PriceSOL string `json:"priceSol"`

	Liquidity      float64 `json:"liquidity"`
	Volume24h      float64 `json:"volume24h"`
	MarketCap      float64 `json:"marketCap"`
	FDV            float64 `json:"fdv"`
	PriceChange24h float64 `json:"priceChange24h"`
	TxnCount24h    int     `json:"txnCount24h"`

	TradingViewURL string `json:"tradingViewUrl"`
	DexScreenerURL string `json:"dexScreenerUrl"`
	ImageURL       string `json:"imageUrl,omitempty"`

	BullishVotes      int `json:"bullishVotes"`
	BearishVotes      int `json:"bearishVotes"`
	BullishPercentage int `json:"bullishPercentage"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toDTO(rec *domain.TokenRecord) tokenDTO {
	return tokenDTO{
		ID:                rec.ID,
		PairAddress:       rec.PairAddress,
		BaseTokenAddress:  rec.BaseTokenAddress,
		BaseTokenName:     rec.BaseTokenName,
		BaseTokenSymbol:   rec.BaseTokenSymbol,
		QuoteTokenAddress: rec.QuoteTokenAddress,
		QuoteTokenName:    rec.QuoteTokenName,
		QuoteTokenSymbol:  rec.QuoteTokenSymbol,
		DexID:             rec.DexID,
		PriceUSD:          rec.PriceUSD.String(),
		PriceSOL:          rec.PriceSOL.String(),
		Liquidity:         rec.Liquidity,
		Volume24h:         rec.Volume24h,
		MarketCap:         rec.MarketCap,
		FDV:               rec.FDV,
		PriceChange24h:    rec.PriceChange24h,
		TxnCount24h:       rec.TxnCount24h,
		TradingViewURL:    rec.TradingViewURL,
		DexScreenerURL:    rec.DexScreenerURL,
		ImageURL:          rec.ImageURL,
		BullishVotes:      rec.BullishVotes,
		BearishVotes:      rec.BearishVotes,
		BullishPercentage: rec.BullishPercentage,
		CreatedAt:         rec.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		UpdatedAt:         rec.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
}

func toDTOs(recs []*domain.TokenRecord) []tokenDTO {
	out := make([]tokenDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDTO(rec))
	}
	return out
}
