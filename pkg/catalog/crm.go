package catalog

import (
	"github.com/David-Botos/warehouse-ingress/pkg/capture"
	"github.com/David-Botos/warehouse-ingress/pkg/cleaner"
	"github.com/David-Botos/warehouse-ingress/pkg/model"
	"github.com/David-Botos/warehouse-ingress/pkg/pipeline"
	"github.com/David-Botos/warehouse-ingress/pkg/standardizer"
	"github.com/David-Botos/warehouse-ingress/pkg/validator"
)

func crmCustomers() pipeline.EntityPipeline {
	columnMap := identity("cst_id", "cst_key", "cst_firstname", "cst_lastname", "cst_marital_status", "cst_gndr")
	columnMap["cst_create_date_raw"] = "cst_create_date"

	return pipeline.EntityPipeline{
		Name:        "crm_customers_info",
		Source:      "source_crm",
		File:        "source_crm/cust_info.csv",
		BronzeTable: "crm_customers_info",
		SilverTable: "crm_customers_info",
		Capture: capture.Descriptor{
			ColumnMap: columnMap,
			OutputColumns: bronzeOutput("cst_id", "cst_key", "cst_firstname", "cst_lastname",
				"cst_marital_status", "cst_gndr", "cst_create_date_raw"),
			LoadedAtColumn: LoadedAt,
		},
		Schema: model.NewSchema("crm_customers_info",
			model.Col("cst_id", model.KindInteger),
			model.Col("cst_key", model.KindText),
			model.Col("cst_firstname", model.KindText),
			model.Col("cst_lastname", model.KindText),
			model.Col("cst_marital_status", model.KindText),
			model.Col("cst_gndr", model.KindText),
			model.Col("cst_create_date_raw", model.KindTimestamp),
			model.Col(LoadedAt, model.KindTimestamp),
		),
		Normalize: cleaner.Rules{TitleCase: []string{"cst_firstname", "cst_lastname"}},
		Dictionaries: []standardizer.Dictionary{
			{Field: "cst_gndr", Mapping: map[string]string{"m": "Male", "f": "Female"}, CaseInsensitive: true},
			{Field: "cst_marital_status", Mapping: map[string]string{"s": "Single", "m": "Married"}, CaseInsensitive: true},
		},
		Rules:       []validator.Rule{validator.IsMissing("cst_id")},
		BusinessKey: []string{"cst_id"},
		OrderBy:     "cst_create_date_raw",
	}
}

func crmProducts() pipeline.EntityPipeline {
	columnMap := identity("prd_id", "prd_key", "prd_cost", "prd_line")
	columnMap["prd_name"] = "prd_nm"
	columnMap["prd_start_date_raw"] = "prd_start_dt"
	columnMap["prd_end_date_raw"] = "prd_end_dt"

	return pipeline.EntityPipeline{
		Name:        "crm_prd_info",
		Source:      "source_crm",
		File:        "source_crm/prd_info.csv",
		BronzeTable: "crm_prd_info",
		SilverTable: "crm_prd_info",
		Capture: capture.Descriptor{
			ColumnMap: columnMap,
			OutputColumns: bronzeOutput("prd_id", "prd_key", "prd_name", "prd_cost", "prd_line",
				"prd_start_date_raw", "prd_end_date_raw"),
			LoadedAtColumn: LoadedAt,
		},
		Schema: model.NewSchema("crm_prd_info",
			model.Col("prd_id", model.KindInteger),
			model.Col("prd_key", model.KindText),
			model.Col("prd_name", model.KindText),
			model.Col("prd_cost", model.KindFloat),
			model.Col("prd_line", model.KindText),
			model.Col("prd_start_date_raw", model.KindTimestamp),
			model.Col("prd_end_date_raw", model.KindTimestamp),
			model.Col(LoadedAt, model.KindTimestamp),
		),
		Normalize: cleaner.Rules{TitleCase: []string{"prd_name"}},
		Dictionaries: []standardizer.Dictionary{
			{Field: "prd_line", Mapping: map[string]string{
				"R": "Road",
				"M": "Mountain",
				"T": "Touring",
				"S": "Other sales",
			}},
		},
		Derives: []standardizer.DeriveRule{
			standardizer.FillMissing{Field: "prd_cost", Value: model.Float(0)},
			standardizer.SplitKey{
				Source:           "prd_key",
				CategoryColumn:   "cat_id",
				ResidualColumn:   "prd_item_key",
				Width:            5,
				DashToUnderscore: true,
			},
			standardizer.InferEndDate{Key: "prd_item_key", Start: "prd_start_date_raw", End: "prd_end_date_raw"},
		},
		Rules:       []validator.Rule{validator.Negative("prd_cost")},
		BusinessKey: []string{"prd_id"},
		OrderBy:     "prd_start_date_raw",
	}
}

func crmSales() pipeline.EntityPipeline {
	columnMap := map[string]string{
		"sales_ord_num":        "sls_ord_num",
		"sales_prd_key":        "sls_prd_key",
		"sales_cust_id":        "sls_cust_id",
		"sales_order_date_raw": "sls_order_dt",
		"sales_ship_date_raw":  "sls_ship_dt",
		"sales_due_date_raw":   "sls_due_dt",
		"sales_sales":          "sls_sales",
		"sales_quantity":       "sls_quantity",
		"sales_price":          "sls_price",
	}

	fields := validator.OrderFields{
		Price:     "sales_price",
		Quantity:  "sales_quantity",
		Amount:    "sales_sales",
		OrderDate: "sales_order_date_raw",
		ShipDate:  "sales_ship_date_raw",
	}

	return pipeline.EntityPipeline{
		Name:        "crm_sales_details",
		Source:      "source_crm",
		File:        "source_crm/sales_details.csv",
		BronzeTable: "crm_sales_details",
		SilverTable: "crm_sales_details",
		Capture: capture.Descriptor{
			ColumnMap: columnMap,
			OutputColumns: bronzeOutput("sales_ord_num", "sales_prd_key", "sales_cust_id",
				"sales_order_date_raw", "sales_ship_date_raw", "sales_due_date_raw",
				"sales_sales", "sales_quantity", "sales_price"),
			LoadedAtColumn: LoadedAt,
		},
		Schema: model.NewSchema("crm_sales_details",
			model.Col("sales_ord_num", model.KindText),
			model.Col("sales_prd_key", model.KindText),
			model.Col("sales_cust_id", model.KindText),
			model.Col("sales_sales", model.KindFloat),
			model.Col("sales_quantity", model.KindInteger),
			model.Col("sales_price", model.KindFloat),
			model.Col("sales_order_date_raw", model.KindTimestamp),
			model.Col("sales_ship_date_raw", model.KindTimestamp),
			model.Col("sales_due_date_raw", model.KindTimestamp),
			model.Col(LoadedAt, model.KindTimestamp),
		),
		Rules: validator.OrderRules(fields),
		Refinements: []validator.Refinement{
			validator.AbsoluteValue(fields.Price),
			validator.AbsoluteValue(fields.Amount),
			validator.AbsoluteValue(fields.Quantity),
			validator.RecomputeProduct(fields.Amount, fields.Price, fields.Quantity),
		},
		BusinessKey: []string{"sales_ord_num", "sales_prd_key"},
		OrderBy:     LoadedAt,
	}
}
