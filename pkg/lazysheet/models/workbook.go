package models

// WorkbookData is a whole workbook realised in memory.
type WorkbookData struct {
	// BookName is the source file name (no path).
	BookName string `json:"book_name"`
	// Sheets holds every sheet in the decoder's native order.
	Sheets SheetList `json:"sheets"`
}

// SheetList is an ordered, queryable list of realised sheets.
type SheetList []SheetData

// Len returns the number of sheets.
func (l SheetList) Len() int {
	return len(l)
}

// At returns the sheet at the zero-based position.
func (l SheetList) At(i int) (SheetData, bool) {
	if i < 0 || i >= len(l) {
		return SheetData{}, false
	}
	return l[i], true
}

// ByName returns the first sheet with the given name.
func (l SheetList) ByName(name string) (SheetData, bool) {
	for _, s := range l {
		if s.Name == name {
			return s, true
		}
	}
	return SheetData{}, false
}

// Names returns the sheet names in order.
func (l SheetList) Names() []string {
	out := make([]string, len(l))
	for i, s := range l {
		out[i] = s.Name
	}
	return out
}

// Filter returns the sheets for which keep returns true.
func (l SheetList) Filter(keep func(SheetData) bool) SheetList {
	out := SheetList{}
	for _, s := range l {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// Each calls fn for every sheet until fn returns false.
func (l SheetList) Each(fn func(SheetData) bool) {
	for _, s := range l {
		if !fn(s) {
			return
		}
	}
}

// ToArray strips the sheet metadata, leaving sheet -> rows -> cells.
func (l SheetList) ToArray() [][]Row {
	out := make([][]Row, len(l))
	for i, s := range l {
		out[i] = []Row(s.Rows)
		if out[i] == nil {
			out[i] = []Row{}
		}
	}
	return out
}

// MapSheets applies fn to every sheet in order.
func MapSheets[T any](l SheetList, fn func(SheetData) T) []T {
	out := make([]T, len(l))
	for i, s := range l {
		out[i] = fn(s)
	}
	return out
}
