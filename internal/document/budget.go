package document

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPattern = regexp.MustCompile(`\$?\d{1,3}(,\d{3})+(\.\d{2})?|\$?\d+(\.\d{2})?`)

// BudgetLine is one line of free budget text with the amounts found on it.
type BudgetLine struct {
	Text    string
	Amounts []float64
}

// ParseBudget scans budget text for monetary amounts line by line and sums
// every match. Any number counts, so dates or quantities inflate the total.
func ParseBudget(text string) ([]BudgetLine, float64) {
	var lines []BudgetLine
	var total float64

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		bl := BudgetLine{Text: line}
		for _, m := range amountPattern.FindAllString(line, -1) {
			v, err := parseAmount(m)
			if err != nil {
				continue
			}
			bl.Amounts = append(bl.Amounts, v)
			total += v
		}
		lines = append(lines, bl)
	}

	return lines, total
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(s, 64)
}

var printer = message.NewPrinter(language.AmericanEnglish)

// formatMoney renders v as $1,234.56.
func formatMoney(v float64) string {
	if v < 0 {
		return "-" + printer.Sprintf("$%.2f", -v)
	}
	return printer.Sprintf("$%.2f", v)
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
