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

// Package database queries the marketing-ready sales view for delivery
// candidates.
package database

import (
	"context"
	"fmt"

	"github.com/chariotdata/dealersync/internal/database"
	"github.com/chariotdata/dealersync/internal/delivery/model"
	"github.com/jackc/pgx/v4"
)

type SalesDB struct {
	db   *database.DB
	view string
}

// New creates a SalesDB reading from the named sales view.
func New(db *database.DB, view string) *SalesDB {
	return &SalesDB{
		db:   db,
		view: view,
	}
}

// UnsentSales returns marketing-ready sales in the date range whose deal
// numbers are not in the excluded set. Exclusion is pushed into the query
// as an array parameter so the delivered set never round-trips through
// string building. Results are newest-first and capped at limit.
func (db *SalesDB) UnsentSales(ctx context.Context, startDate, endDate string, exclude []string, limit int) ([]*model.Sale, error) {
	if exclude == nil {
		exclude = []string{}
	}

	query := fmt.Sprintf(`
		SELECT
			deal_number, user_id, vin, stock_number, email, phone,
			make, model, year, body_style, color, vehicle_condition, odometer_reading,
			purchase_date, transaction_type, deal_category, dealership_location,
			vehicle_price, total_price, total_gross_profit, cash_down, lender,
			amount_financed, interest_rate, finance_term_months, monthly_payment,
			trade_equity, trade_vehicle_description,
			sales_manager, salesperson, purchase_sequence
		FROM
			%s
		WHERE
			purchase_date >= $1
			AND purchase_date <= $2
			AND deal_number != ALL($3::text[])
		ORDER BY purchase_date DESC
		LIMIT $4
	`, db.view)

	var sales []*model.Sale
	err := db.db.InTx(ctx, pgx.ReadCommitted, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, startDate, endDate, exclude, limit)
		if err != nil {
			return fmt.Errorf("failed to query sales: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var s model.Sale
			if err := rows.Scan(
				&s.DealNumber, &s.UserID, &s.VIN, &s.StockNumber, &s.Email, &s.Phone,
				&s.Make, &s.Model, &s.Year, &s.BodyStyle, &s.Color, &s.VehicleCondition, &s.OdometerReading,
				&s.PurchaseDate, &s.TransactionType, &s.DealCategory, &s.DealershipLocation,
				&s.VehiclePrice, &s.TotalPrice, &s.TotalGrossProfit, &s.CashDown, &s.Lender,
				&s.AmountFinanced, &s.InterestRate, &s.FinanceTermMonths, &s.MonthlyPayment,
				&s.TradeEquity, &s.TradeVehicleDescription,
				&s.SalesManager, &s.Salesperson, &s.PurchaseSequence,
			); err != nil {
				return fmt.Errorf("failed to scan sale: %w", err)
			}
			sales = append(sales, &s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return sales, nil
}
