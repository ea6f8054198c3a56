package forecast

// WeekdayAverages maps productID -> weekday (0-6) -> average units sold on
// that weekday. A missing weekday means the product was never observed on it.
type WeekdayAverages map[string]map[int]float64

// Lookup reports the weekday average for a product and whether one exists.
func (w WeekdayAverages) Lookup(productID string, weekday int) (float64, bool) {
	byWeekday, ok := w[productID]
	if !ok {
		return 0, false
	}
	avg, ok := byWeekday[weekday]
	return avg, ok
}

// TrailingAverages maps productID -> average units per selling day over the
// trailing window. Products without sales in the window are absent.
type TrailingAverages map[string]float64

// Lookup reports the trailing average for a product and whether one exists.
func (t TrailingAverages) Lookup(productID string) (float64, bool) {
	avg, ok := t[productID]
	return avg, ok
}

// dailyTotals sums quantities per product per shop-local calendar day.
func dailyTotals(sales []SaleRecord, cal *Calendar) map[string]map[string]int {
	out := make(map[string]map[string]int)
	for _, s := range sales {
		byDate, ok := out[s.ProductID]
		if !ok {
			byDate = make(map[string]int)
			out[s.ProductID] = byDate
		}
		byDate[cal.DateKey(s.SoldAt)] += s.Quantity
	}
	return out
}

// BuildWeekdayAverages averages each product's daily totals per weekday.
func BuildWeekdayAverages(sales []SaleRecord, cal *Calendar) WeekdayAverages {
	type bucket struct {
		sum   int
		count int
	}

	out := make(WeekdayAverages)
	for productID, byDate := range dailyTotals(sales, cal) {
		buckets := make(map[int]*bucket)
		for date, qty := range byDate {
			// date keys come from DateKey and always parse
			wd, _ := WeekdayOf(date)
			b, ok := buckets[wd]
			if !ok {
				b = &bucket{}
				buckets[wd] = b
			}
			b.sum += qty
			b.count++
		}

		avgByWeekday := make(map[int]float64, len(buckets))
		for wd, b := range buckets {
			avgByWeekday[wd] = float64(b.sum) / float64(b.count)
		}
		out[productID] = avgByWeekday
	}
	return out
}

// trailingWindowDays is the length of the fallback window ending yesterday.
const trailingWindowDays = 7

// BuildTrailingAverages computes each product's average over the days in
// [today-7, today) on which it sold at all. Today is excluded because it is
// still in progress.
func BuildTrailingAverages(sales []SaleRecord, cal *Calendar, today string) (TrailingAverages, error) {
	start, err := AddDays(today, -trailingWindowDays)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int)
	days := make(map[string]map[string]struct{})
	for _, s := range sales {
		date := cal.DateKey(s.SoldAt)
		if date < start || date >= today {
			continue
		}
		totals[s.ProductID] += s.Quantity
		seen, ok := days[s.ProductID]
		if !ok {
			seen = make(map[string]struct{})
			days[s.ProductID] = seen
		}
		seen[date] = struct{}{}
	}

	out := make(TrailingAverages, len(totals))
	for productID, total := range totals {
		out[productID] = float64(total) / float64(len(days[productID]))
	}
	return out, nil
}
