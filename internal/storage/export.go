package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/IshaanNene/deskrank/internal/catalog"
)

var csvHeader = []string{"rank", "id", "name", "brand", "category", "subCategory", "score", "asin", "price", "affiliateUrl"}

// WriteCSV writes ranked items as CSV rows.
func WriteCSV(w io.Writer, items []catalog.Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, it := range items {
		var asin, price, link string
		if it.Amazon != nil {
			asin, link = it.Amazon.ASIN, it.Amazon.AffiliateURL
			if it.Amazon.Price > 0 {
				price = strconv.Itoa(it.Amazon.Price)
			}
		}
		row := []string{
			strconv.Itoa(it.Rank), it.ID, it.Name, it.Brand, it.Category, it.SubCategory,
			strconv.Itoa(it.Score), asin, price, link,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
