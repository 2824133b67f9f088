package catalog

import (
	"time"

	"github.com/David-Botos/warehouse-ingress/pkg/capture"
	"github.com/David-Botos/warehouse-ingress/pkg/model"
	"github.com/David-Botos/warehouse-ingress/pkg/pipeline"
	"github.com/David-Botos/warehouse-ingress/pkg/standardizer"
	"github.com/David-Botos/warehouse-ingress/pkg/validator"
)

// erpCustomerIDLength is the width of the customer number shared with CRM
const erpCustomerIDLength = 10

func erpCustomers(now func() time.Time) pipeline.EntityPipeline {
	return pipeline.EntityPipeline{
		Name:        "erp_cust_az12",
		Source:      "source_erp",
		File:        "source_erp/CUST_AZ12.csv",
		BronzeTable: "erp_cust_az12",
		SilverTable: "erp_cust_az12",
		Capture: capture.Descriptor{
			ColumnMap: map[string]string{
				"cid":            "cid",
				"birth_date_raw": "bdate",
				"gender_raw":     "gen",
			},
			OutputColumns:  bronzeOutput("cid", "birth_date_raw", "gender_raw"),
			LoadedAtColumn: LoadedAt,
		},
		Schema: model.NewSchema("erp_cust_az12",
			model.Col("cid", model.KindText),
			model.Col("birth_date_raw", model.KindTimestamp),
			model.Col("gender_raw", model.KindText),
			model.Col(LoadedAt, model.KindTimestamp),
		),
		Dictionaries: []standardizer.Dictionary{
			{Field: "gender_raw", Mapping: map[string]string{
				"m":      "Male",
				"male":   "Male",
				"f":      "Female",
				"female": "Female",
			}, CaseInsensitive: true},
		},
		Derives: []standardizer.DeriveRule{
			standardizer.TrimIdentifier{Field: "cid", Length: erpCustomerIDLength},
			standardizer.FutureDateToMissing{Field: "birth_date_raw", Now: now},
		},
		Rules:       []validator.Rule{validator.IsMissing("cid")},
		BusinessKey: []string{"cid"},
		OrderBy:     LoadedAt,
	}
}

func erpLocations() pipeline.EntityPipeline {
	return pipeline.EntityPipeline{
		Name:        "erp_location_a101",
		Source:      "source_erp",
		File:        "source_erp/LOC_A101.csv",
		BronzeTable: "erp_location_a101",
		SilverTable: "erp_location_a101",
		Capture: capture.Descriptor{
			ColumnMap:      map[string]string{"cid": "cid", "country_name": "cntry"},
			OutputColumns:  bronzeOutput("cid", "country_name"),
			LoadedAtColumn: LoadedAt,
		},
		Schema: model.NewSchema("erp_location_a101",
			model.Col("cid", model.KindText),
			model.Col("country_name", model.KindText),
			model.Col(LoadedAt, model.KindTimestamp),
		),
		Dictionaries: []standardizer.Dictionary{
			{Field: "country_name", Mapping: map[string]string{
				"de":             "Germany",
				"germany":        "Germany",
				"us":             "United States",
				"usa":            "United States",
				"united states":  "United States",
				"uk":             "United Kingdom",
				"united kingdom": "United Kingdom",
				"fr":             "France",
				"france":         "France",
				"ca":             "Canada",
				"canada":         "Canada",
				"au":             "Australia",
				"australia":      "Australia",
			}, CaseInsensitive: true},
		},
		Derives: []standardizer.DeriveRule{
			standardizer.StripCharacters{Field: "cid", Chars: "-"},
		},
		Rules:       []validator.Rule{validator.IsMissing("cid")},
		BusinessKey: []string{"cid"},
		OrderBy:     LoadedAt,
	}
}

func erpCategories() pipeline.EntityPipeline {
	return pipeline.EntityPipeline{
		Name:        "erp_px_cat_g1v2",
		Source:      "source_erp",
		File:        "source_erp/PX_CAT_G1V2.csv",
		BronzeTable: "erp_px_cat_g1v2",
		SilverTable: "erp_px_cat_g1v2",
		Capture: capture.Descriptor{
			ColumnMap:      map[string]string{"id": "id", "cat": "cat", "subcat": "subcat", "maintenance_raw": "maintenance"},
			OutputColumns:  bronzeOutput("id", "cat", "subcat", "maintenance_raw"),
			LoadedAtColumn: LoadedAt,
		},
		Schema: model.NewSchema("erp_px_cat_g1v2",
			model.Col("id", model.KindText),
			model.Col("cat", model.KindText),
			model.Col("subcat", model.KindText),
			model.Col("maintenance_raw", model.KindBoolean),
			model.Col(LoadedAt, model.KindTimestamp),
		),
		Rules:       []validator.Rule{validator.IsMissing("id")},
		BusinessKey: []string{"id"},
		OrderBy:     LoadedAt,
	}
}
