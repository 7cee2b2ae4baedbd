package inventory

import (
	"fmt"
	"strconv"
	"strings"

	"kiosk-backend/internal/logging"
	"kiosk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// RestockRow is one delivery line: which ingredient and how many units arrived.
type RestockRow struct {
	Line     int
	Name     string
	Quantity int
}

// normalizeName makes spreadsheet names comparable with catalog names:
// case and repeated whitespace are ignored.
func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ParseRestockRows reads (name, quantity) pairs from sheet rows. The first row
// is skipped when it is a header (its quantity cell is not a number). Blank
// rows are ignored; a bad quantity fails the whole sheet.
func ParseRestockRows(rows [][]string) ([]RestockRow, error) {
	start := 0
	if len(rows) > 0 && isHeader(rows[0]) {
		start = 1
	}

	out := make([]RestockRow, 0, len(rows))
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		line := i + 1

		if len(row) < 2 || strings.TrimSpace(row[1]) == "" {
			return nil, fmt.Errorf("row %d: quantity is missing", line)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("row %d: quantity %q is not a whole number", line, row[1])
		}
		if qty <= 0 {
			return nil, fmt.Errorf("row %d: quantity must be positive", line)
		}

		out = append(out, RestockRow{Line: line, Name: strings.TrimSpace(row[0]), Quantity: qty})
	}
	return out, nil
}

func isHeader(row []string) bool {
	if len(row) < 2 {
		return len(row) == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "name")
	}
	_, err := strconv.Atoi(strings.TrimSpace(row[1]))
	return err != nil
}

// RestockResult summarizes an import.
type RestockResult struct {
	MatchedCount   int      `json:"matched_count"`
	UnitsAdded     int      `json:"units_added"`
	UnmatchedNames []string `json:"unmatched_names"`
}

// Restock adds every matched row to stock in one transaction. Rows whose name
// matches no ingredient are reported back and leave stock untouched.
func Restock(db *gorm.DB, rows []RestockRow) (RestockResult, error) {
	result := RestockResult{UnmatchedNames: []string{}}

	err := db.Transaction(func(tx *gorm.DB) error {
		var ingredients []models.Ingredient
		if err := tx.Select("id", "name").Find(&ingredients).Error; err != nil {
			return err
		}
		byName := make(map[string]uint, len(ingredients))
		for _, ing := range ingredients {
			byName[normalizeName(ing.Name)] = ing.ID
		}

		for _, row := range rows {
			id, ok := byName[normalizeName(row.Name)]
			if !ok {
				result.UnmatchedNames = append(result.UnmatchedNames, row.Name)
				continue
			}

			err := tx.Model(&models.Ingredient{}).
				Where("id = ?", id).
				Update("quantity", gorm.Expr("quantity + ?", row.Quantity)).Error
			if err != nil {
				return fmt.Errorf("row %d (%s): %w", row.Line, row.Name, err)
			}
			result.MatchedCount++
			result.UnitsAdded += row.Quantity
		}
		return nil
	})
	if err != nil {
		return RestockResult{}, err
	}
	return result, nil
}

// POST /api/manager/ingredients/restock
// Multipart upload, field "file", first sheet, columns: name, quantity.
func RestockHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Upload failed: "+err.Error())
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Only .xlsx files are accepted")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not open upload: "+err.Error())
		}
		defer file.Close()

		book, err := excelize.OpenReader(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Could not read spreadsheet: "+err.Error())
		}
		defer book.Close()

		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Spreadsheet has no sheets")
		}
		sheetRows, err := book.GetRows(sheets[0])
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Could not read sheet: "+err.Error())
		}

		rows, err := ParseRestockRows(sheetRows)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if len(rows) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Spreadsheet is empty")
		}

		result, err := Restock(db.WithContext(c.UserContext()), rows)
		if err != nil {
			logging.FromContext(c.UserContext()).WithError(err).Error("Restock failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Restock failed: "+err.Error())
		}

		logging.FromContext(c.UserContext()).WithFields(logrus.Fields{
			"file":      fileHeader.Filename,
			"matched":   result.MatchedCount,
			"units":     result.UnitsAdded,
			"unmatched": len(result.UnmatchedNames),
		}).Info("Ingredients restocked")

		return c.JSON(fiber.Map{
			"success":         true,
			"matched_count":   result.MatchedCount,
			"units_added":     result.UnitsAdded,
			"unmatched_names": result.UnmatchedNames,
			"message":         fmt.Sprintf("%d rows restocked, %d names not matched", result.MatchedCount, len(result.UnmatchedNames)),
		})
	}
}
