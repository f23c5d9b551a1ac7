// Package keyboard packs flat button lists into row-constrained inline
// keyboard layouts.
package keyboard

import (
	"unicode/utf8"

	"bifrost/internal/constants"
	"bifrost/pkg/models"
)

// Organize packs buttons into rows left to right, in input order,
// keeping the summed label width of each row at or under the budget.
// A button whose label alone exceeds the budget gets a row to itself.
// Zero buttons yields zero rows.
func Organize(buttons []models.Button) [][]models.Button {
	return OrganizeWithBudget(buttons, constants.ButtonRowBudget)
}

// OrganizeWithBudget is Organize with an explicit row budget. This is
// a streaming greedy pack, not optimal bin-packing; order preservation
// matters more than minimal row count.
func OrganizeWithBudget(buttons []models.Button, budget int) [][]models.Button {
	rows := make([][]models.Button, 0, len(buttons))
	var row []models.Button
	remaining := budget

	for _, btn := range buttons {
		width := utf8.RuneCountInString(btn.Text)
		if width > budget {
			if len(row) > 0 {
				rows = append(rows, row)
			}
			rows = append(rows, []models.Button{btn})
			row = nil
			remaining = budget
			continue
		}
		if width > remaining {
			rows = append(rows, row)
			row = nil
			remaining = budget
		}
		row = append(row, btn)
		remaining -= width
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}
