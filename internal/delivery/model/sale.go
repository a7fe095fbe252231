// Copyright 2023 the DealerSync authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package model defines the marketing-ready sale row and its track-event
// representation.
package model

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// Sale is one row of the marketing-ready sales view. Pointer fields are
// nullable in the warehouse.
type Sale struct {
	DealNumber string
	UserID     string
	VIN        string

	StockNumber *string
	Email       *string
	Phone       *string

	Make             *string
	Model            *string
	Year             *float64
	BodyStyle        *string
	Color            *string
	VehicleCondition *string
	OdometerReading  *float64

	PurchaseDate       *time.Time
	TransactionType    *string
	DealCategory       *string
	DealershipLocation *string

	VehiclePrice      *float64
	TotalPrice        *float64
	TotalGrossProfit  *float64
	CashDown          *float64
	Lender            *string
	AmountFinanced    *float64
	InterestRate      *float64
	FinanceTermMonths *float64
	MonthlyPayment    *float64

	TradeEquity             *float64
	TradeVehicleDescription *string

	SalesManager     *string
	Salesperson      *string
	PurchaseSequence *float64
}

// Validate checks the fields every downstream campaign depends on.
func (s *Sale) Validate() error {
	if s.DealNumber == "" {
		return fmt.Errorf("missing deal number")
	}
	if s.UserID == "" {
		return fmt.Errorf("missing user id")
	}
	if s.VIN == "" {
		return fmt.Errorf("missing vin")
	}
	return nil
}

// messageIDLimit is the destination's messageId character limit.
const messageIDLimit = 50

// DeriveMessageID builds the deterministic message ID for a sale. The
// same deal and VIN always produce the same ID, so re-sending an event is
// deduplicated downstream.
func DeriveMessageID(dealNumber, vin string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("vehicle_purchase_%s_%s", dealNumber, vin)))
	id := "vp_" + hex.EncodeToString(sum[:])
	if len(id) > messageIDLimit {
		id = id[:messageIDLimit]
	}
	return id
}

// Library identifies the sending application.
type Library struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// EventContext carries provenance on every event.
type EventContext struct {
	Library Library `json:"library"`
	Source  string  `json:"source"`
}

// Properties is the flattened sale payload. Null fields stay present so
// the destination sees explicit nulls rather than missing keys.
type Properties struct {
	DealNumber  string  `json:"deal_number"`
	VIN         string  `json:"vin"`
	StockNumber *string `json:"stock_number"`

	VehicleMake      *string  `json:"vehicle_make"`
	VehicleModel     *string  `json:"vehicle_model"`
	VehicleYear      *float64 `json:"vehicle_year"`
	BodyStyle        *string  `json:"body_style"`
	VehicleColor     *string  `json:"vehicle_color"`
	VehicleCondition *string  `json:"vehicle_condition"`
	OdometerReading  *float64 `json:"odometer_reading"`

	TransactionType *string `json:"transaction_type"`
	DealCategory    *string `json:"deal_category"`
	Dealership      *string `json:"dealership"`

	VehiclePrice   *float64 `json:"vehicle_price"`
	TotalPrice     *float64 `json:"total_price"`
	Revenue        *float64 `json:"revenue"`
	GrossProfit    *float64 `json:"gross_profit"`
	DownPayment    *float64 `json:"down_payment"`
	AmountFinanced *float64 `json:"amount_financed"`
	InterestRate   *float64 `json:"interest_rate"`
	FinanceTerm    *float64 `json:"finance_term"`
	MonthlyPayment *float64 `json:"monthly_payment"`
	Lender         *string  `json:"lender"`

	HadTrade         bool     `json:"had_trade"`
	TradeEquity      *float64 `json:"trade_equity"`
	TradeDescription *string  `json:"trade_description"`

	SalesManager           *string  `json:"sales_manager"`
	Salesperson            *string  `json:"salesperson"`
	CustomerPurchaseNumber *float64 `json:"customer_purchase_number"`

	CustomerEmail *string `json:"customer_email"`
	CustomerPhone *string `json:"customer_phone"`
}

// TrackEvent is the delivery envelope. WriteKey is attached by the
// publisher at send time.
type TrackEvent struct {
	Type       string       `json:"type"`
	MessageID  string       `json:"messageId"`
	UserID     string       `json:"userId"`
	Event      string       `json:"event"`
	Timestamp  string       `json:"timestamp"`
	Properties Properties   `json:"properties"`
	Context    EventContext `json:"context"`
	WriteKey   string       `json:"writeKey,omitempty"`
}

const (
	// eventName is fixed so campaign triggers key off one spelling.
	eventName = "Vehicle Purchased"

	libraryName    = "dealersync-delivery"
	libraryVersion = "2.0.0"
	contextSource  = "data_warehouse"
)

// TrackEvent converts the sale into its delivery envelope. Purchase
// timestamps are normalized to midday UTC so date-only values attribute
// to the correct day in every timezone; a missing purchase date falls
// back to now.
func (s *Sale) TrackEvent(now time.Time) *TrackEvent {
	timestamp := now.UTC().Format(time.RFC3339)
	if s.PurchaseDate != nil {
		timestamp = s.PurchaseDate.UTC().Format("2006-01-02") + "T12:00:00Z"
	}

	return &TrackEvent{
		Type:      "track",
		MessageID: DeriveMessageID(s.DealNumber, s.VIN),
		UserID:    s.UserID,
		Event:     eventName,
		Timestamp: timestamp,
		Properties: Properties{
			DealNumber:  s.DealNumber,
			VIN:         s.VIN,
			StockNumber: s.StockNumber,

			VehicleMake:      s.Make,
			VehicleModel:     s.Model,
			VehicleYear:      s.Year,
			BodyStyle:        s.BodyStyle,
			VehicleColor:     s.Color,
			VehicleCondition: s.VehicleCondition,
			OdometerReading:  s.OdometerReading,

			TransactionType: s.TransactionType,
			DealCategory:    s.DealCategory,
			Dealership:      s.DealershipLocation,

			VehiclePrice:   s.VehiclePrice,
			TotalPrice:     s.TotalPrice,
			Revenue:        s.TotalPrice,
			GrossProfit:    s.TotalGrossProfit,
			DownPayment:    s.CashDown,
			AmountFinanced: s.AmountFinanced,
			InterestRate:   s.InterestRate,
			FinanceTerm:    s.FinanceTermMonths,
			MonthlyPayment: s.MonthlyPayment,
			Lender:         s.Lender,

			HadTrade:         s.TradeEquity != nil && *s.TradeEquity != 0,
			TradeEquity:      s.TradeEquity,
			TradeDescription: s.TradeVehicleDescription,

			SalesManager:           s.SalesManager,
			Salesperson:            s.Salesperson,
			CustomerPurchaseNumber: s.PurchaseSequence,

			CustomerEmail: s.Email,
			CustomerPhone: s.Phone,
		},
		Context: EventContext{
			Library: Library{
				Name:    libraryName,
				Version: libraryVersion,
			},
			Source: contextSource,
		},
	}
}
