// Package generator writes synthetic CRM and ERP extracts with the same
// layout and the same kinds of defects as the real source exports.
package generator

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"go.uber.org/zap"
)

const (
	dateLayout    = "2006-01-02"
	compactLayout = "20060102"
)

// Options controls the size and dirtiness of the generated extracts
type Options struct {
	Rows       int     // customers to generate; the other extracts scale from it
	Seed       int64   // 0 picks a random seed
	DefectRate float64 // share of rows given a defect, 0..1
}

// DefaultOptions returns the options used by the generate command
func DefaultOptions() Options {
	return Options{Rows: 100, DefectRate: 0.1}
}

// Generator produces the six source extracts
type Generator struct {
	faker  *gofakeit.Faker
	logger *zap.Logger
	opts   Options
}

// New creates a Generator
func New(logger *zap.Logger, opts Options) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if opts.Rows <= 0 {
		return nil, fmt.Errorf("rows must be positive, got %d", opts.Rows)
	}
	if opts.DefectRate < 0 || opts.DefectRate > 1 {
		return nil, fmt.Errorf("defect rate must be between 0 and 1, got %v", opts.DefectRate)
	}
	return &Generator{
		faker:  gofakeit.New(opts.Seed),
		logger: logger.Named("generator"),
		opts:   opts,
	}, nil
}

type extract struct {
	file   string
	header []string
	rows   [][]string
}

type product struct {
	key   string
	price int
}

var (
	categories = []struct{ id, cat, subcat string }{
		{"AC_BR", "Accessories", "Bike Racks"},
		{"AC_BS", "Accessories", "Bike Stands"},
		{"AC_HE", "Accessories", "Helmets"},
		{"BI_MB", "Bikes", "Mountain Bikes"},
		{"BI_RB", "Bikes", "Road Bikes"},
		{"BI_TB", "Bikes", "Touring Bikes"},
		{"CL_JE", "Clothing", "Jerseys"},
		{"CO_RF", "Components", "Road Frames"},
	}
	productLines = []string{"R", "M", "T", "S", "r ", " M"}
	countries    = []string{"DE", "US", "USA", "United States", "Germany", "UK", "France", "Canada", "Australia", "FR"}
)

// Write generates every extract under dir, using the source_crm and
// source_erp sub-directories, and returns the written paths relative to dir
func (g *Generator) Write(dir string) ([]string, error) {
	customers := g.customers()
	products := g.products()
	extracts := []extract{
		customers,
		products.extract,
		g.sales(customers.rows, products.catalog),
		g.erpCustomers(customers.rows),
		g.erpLocations(customers.rows),
		g.erpCategories(),
	}

	written := make([]string, 0, len(extracts))
	for _, e := range extracts {
		if err := writeCSV(filepath.Join(dir, e.file), e.header, e.rows); err != nil {
			return written, err
		}
		written = append(written, e.file)
		g.logger.Info("Generated extract",
			zap.String("file", e.file),
			zap.Int("rows", len(e.rows)))
	}
	return written, nil
}

func (g *Generator) defect() bool {
	return g.opts.DefectRate > 0 && g.faker.Float64Range(0, 1) < g.opts.DefectRate
}

func (g *Generator) date(from, to time.Time) time.Time {
	d := g.faker.DateRange(from, to)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func customerKey(id int) string {
	return fmt.Sprintf("AW%08d", 11000+id)
}

// customers emits one row per customer plus re-submitted duplicates with a
// later create date
func (g *Generator) customers() extract {
	e := extract{
		file:   "source_crm/cust_info.csv",
		header: []string{"cst_id", "cst_key", "cst_firstname", "cst_lastname", "cst_marital_status", "cst_gndr", "cst_create_date"},
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= g.opts.Rows; i++ {
		first, last := g.faker.FirstName(), g.faker.LastName()
		marital := g.faker.RandomString([]string{"S", "M"})
		gender := g.faker.RandomString([]string{"M", "F"})
		created := g.date(start, start.AddDate(0, 6, 0))
		id := strconv.Itoa(i)

		if g.defect() {
			switch g.faker.Number(0, 3) {
			case 0:
				first = "  " + strings.ToLower(first) + " "
			case 1:
				gender = g.faker.RandomString([]string{"", "x", "m"})
			case 2:
				marital = ""
			case 3:
				id = ""
			}
		}
		e.rows = append(e.rows, []string{id, customerKey(i), first, last, marital, gender, created.Format(dateLayout)})

		if g.defect() {
			updated := created.AddDate(0, 0, g.faker.Number(1, 90))
			e.rows = append(e.rows, []string{id, customerKey(i), first, last,
				g.faker.RandomString([]string{"S", "M"}), gender, updated.Format(dateLayout)})
		}
	}
	return e
}

type productSet struct {
	extract
	catalog []product
}

// products emits a price history per product key with contiguous start
// dates and no end dates
func (g *Generator) products() productSet {
	set := productSet{extract: extract{
		file:   "source_crm/prd_info.csv",
		header: []string{"prd_id", "prd_key", "prd_nm", "prd_cost", "prd_line", "prd_start_dt", "prd_end_dt"},
	}}

	n := g.opts.Rows/4 + 1
	id := 200
	for i := 0; i < n; i++ {
		cat := categories[g.faker.Number(0, len(categories)-1)]
		item := fmt.Sprintf("%s-%s-%d", strings.ToUpper(g.faker.LetterN(2)), strings.ToUpper(g.faker.LetterN(4)), g.faker.Number(38, 62))
		key := strings.ReplaceAll(cat.id, "_", "-") + "-" + item
		name := fmt.Sprintf("%s %s - %d", g.faker.RandomString([]string{"HL", "ML", "LL"}), cat.subcat, g.faker.Number(38, 62))
		line := productLines[g.faker.Number(0, len(productLines)-1)]
		start := g.date(time.Date(2003, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC))

		versions := g.faker.Number(1, 3)
		price := 0
		for v := 0; v < versions; v++ {
			price = g.faker.Number(5, 2000)
			cost := strconv.Itoa(price)
			if g.defect() {
				cost = g.faker.RandomString([]string{"", "-" + cost})
			}
			set.rows = append(set.rows, []string{strconv.Itoa(id), key, name, cost, line, start.Format(dateLayout), ""})
			id++
			start = start.AddDate(1, 0, 0)
		}
		set.catalog = append(set.catalog, product{key: item, price: price})
	}
	return set
}

// sales emits order lines against the generated customers and products
func (g *Generator) sales(customers [][]string, products []product) extract {
	e := extract{
		file:   "source_crm/sales_details.csv",
		header: []string{"sls_ord_num", "sls_prd_key", "sls_cust_id", "sls_order_dt", "sls_ship_dt", "sls_due_dt", "sls_sales", "sls_quantity", "sls_price"},
	}

	for i := 0; i < g.opts.Rows*2; i++ {
		p := products[g.faker.Number(0, len(products)-1)]
		c := customers[g.faker.Number(0, len(customers)-1)]
		ordered := g.date(time.Date(2010, 12, 29, 0, 0, 0, 0, time.UTC), time.Date(2014, 1, 28, 0, 0, 0, 0, time.UTC))
		shipped := ordered.AddDate(0, 0, 7)
		due := ordered.AddDate(0, 0, 12)
		qty := g.faker.Number(1, 3)

		order := ordered.Format(compactLayout)
		quantity := strconv.Itoa(qty)
		price := strconv.Itoa(p.price)
		amount := strconv.Itoa(p.price * qty)

		if g.defect() {
			switch g.faker.Number(0, 4) {
			case 0:
				amount = "-" + amount
			case 1:
				price = ""
			case 2:
				quantity = ""
			case 3:
				order = shipped.AddDate(0, 0, 3).Format(compactLayout)
			case 4:
				amount = strconv.Itoa(p.price*qty + g.faker.Number(1, 50))
			}
		}

		e.rows = append(e.rows, []string{
			fmt.Sprintf("SO%d", 43697+i), p.key, c[0],
			order, shipped.Format(compactLayout), due.Format(compactLayout),
			amount, quantity, price,
		})
	}
	return e
}

// erpCustomers re-keys the CRM customers the way the ERP exports them:
// a NAS prefix on some ids, loose gender codes and the odd future birth date
func (g *Generator) erpCustomers(customers [][]string) extract {
	e := extract{
		file:   "source_erp/CUST_AZ12.csv",
		header: []string{"CID", "BDATE", "GEN"},
	}
	for _, c := range customers {
		cid := c[1]
		if g.faker.Bool() {
			cid = "NAS" + cid
		}
		birth := g.date(time.Date(1930, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC))
		gender := g.faker.RandomString([]string{"Male", "Female", "M", "F"})

		if g.defect() {
			switch g.faker.Number(0, 2) {
			case 0:
				birth = time.Date(2100+g.faker.Number(0, 50), 1, 1, 0, 0, 0, 0, time.UTC)
			case 1:
				gender = g.faker.RandomString([]string{"", " F", "male "})
			case 2:
				cid = cid[:4]
			}
		}
		e.rows = append(e.rows, []string{cid, birth.Format(dateLayout), gender})
	}
	return e
}

func (g *Generator) erpLocations(customers [][]string) extract {
	e := extract{
		file:   "source_erp/LOC_A101.csv",
		header: []string{"CID", "CNTRY"},
	}
	for _, c := range customers {
		key := c[1]
		cid := key[:2] + "-" + key[2:]
		country := countries[g.faker.Number(0, len(countries)-1)]
		if g.defect() {
			country = g.faker.RandomString([]string{"", " ", "de", "n/a"})
		}
		e.rows = append(e.rows, []string{cid, country})
	}
	return e
}

func (g *Generator) erpCategories() extract {
	e := extract{
		file:   "source_erp/PX_CAT_G1V2.csv",
		header: []string{"ID", "CAT", "SUBCAT", "MAINTENANCE"},
	}
	for _, c := range categories {
		maintenance := "No"
		if g.faker.Bool() {
			maintenance = "Yes"
		}
		e.rows = append(e.rows, []string{c.id, c.cat, c.subcat, maintenance})
	}
	return e
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
