package schema

import "github.com/cegidsync/cegidsync/internal/model"

// Entities is the signature table. Order matters: Detect returns the first match.
var Entities = []Entity{
	{
		Name:   "histocumsal",
		Label:  "Cumulative payroll records",
		Table:  "is_cegid_histocumsal",
		Prefix: "PHC_",
		Fields: []model.Field{
			{Column: "PHC_SALARIE", Name: "phc_salarie", Type: model.FieldText, Required: true},
			{Column: "PHC_CUMULPAIE", Name: "phc_cumulpaie", Type: model.FieldText, Required: true},
			{Column: "PHC_MONTANT", Name: "phc_montant", Type: model.FieldNumeric, Scale: 2},
		},
		UniqueKey: []string{"phc_salarie", "phc_cumulpaie"},
	},
	{
		Name:   "ecriture",
		Label:  "Accounting entries",
		Table:  "is_cegid_ecriture",
		Prefix: "E_",
		Fields: []model.Field{
			{Column: "E_DATECOMPTABLE", Name: "e_datecomptable", Type: model.FieldDatetime},
			{Column: "E_REFINTERNE", Name: "e_refinterne", Type: model.FieldText},
			{Column: "E_LIBELLE", Name: "e_libelle", Type: model.FieldText},
			{Column: "E_GENERAL", Name: "e_general", Type: model.FieldText},
			{Column: "E_DEBIT", Name: "e_debit", Type: model.FieldNumeric, Scale: 2},
			{Column: "E_CREDIT", Name: "e_credit", Type: model.FieldNumeric, Scale: 2},
			{Column: "E_AUXILIAIRE", Name: "e_auxiliaire", Type: model.FieldText},
			{Column: "E_REFLIBRE", Name: "e_reflibre", Type: model.FieldText},
		},
	},
	{
		Name:   "absencesalarie",
		Label:  "Employee absences",
		Table:  "is_cegid_absencesalarie",
		Prefix: "PCN_",
		Fields: []model.Field{
			{Column: "PCN_TYPEMVT", Name: "pcn_typemvt", Type: model.FieldText},
			{Column: "PCN_SALARIE", Name: "pcn_salarie", Type: model.FieldText},
			{Column: "PCN_ORDRE", Name: "pcn_ordre", Type: model.FieldInteger},
			{Column: "PCN_PERIODECP", Name: "pcn_periodecp", Type: model.FieldInteger},
			{Column: "PCN_TYPECONGE", Name: "pcn_typeconge", Type: model.FieldText},
			{Column: "PCN_SENSABS", Name: "pcn_sensabs", Type: model.FieldText},
			{Column: "PCN_LIBELLE", Name: "pcn_libelle", Type: model.FieldText},
			{Column: "PCN_DATEDEBUTABS", Name: "pcn_datedebutabs", Type: model.FieldDatetime},
			{Column: "PCN_DEBUTDJ", Name: "pcn_debutdj", Type: model.FieldText},
			{Column: "PCN_DATEFINABS", Name: "pcn_datefinabs", Type: model.FieldDatetime},
			{Column: "PCN_FINDJ", Name: "pcn_findj", Type: model.FieldText},
			{Column: "PCN_JOURS", Name: "pcn_jours", Type: model.FieldNumeric, Scale: 2},
			{Column: "PCN_HEURES", Name: "pcn_heures", Type: model.FieldNumeric, Scale: 2},
			{Column: "PCN_GUID", Name: "pcn_guid", Type: model.FieldText},
		},
	},
	{
		Name:   "analytiq",
		Label:  "Analytical entries",
		Table:  "is_cegid_analytiq",
		Prefix: "Y_",
		Fields: []model.Field{
			{Column: "Y_DATECOMPTABLE", Name: "y_datecomptable", Type: model.FieldDatetime},
			{Column: "Y_GENERAL", Name: "y_general", Type: model.FieldText},
			{Column: "Y_AXE", Name: "y_axe", Type: model.FieldText},
			{Column: "Y_SECTION", Name: "y_section", Type: model.FieldText},
			{Column: "Y_REFINTERNE", Name: "y_refinterne", Type: model.FieldInteger},
			{Column: "Y_LIBELLE", Name: "y_libelle", Type: model.FieldText},
			{Column: "Y_NATUREPIECE", Name: "y_naturepiece", Type: model.FieldText},
			{Column: "Y_REFEXTERNE", Name: "y_refexterne", Type: model.FieldText},
			{Column: "Y_JOURNAL", Name: "y_journal", Type: model.FieldText},
			{Column: "Y_CONTREPARTIEAUX", Name: "y_contrepartieaux", Type: model.FieldText},
			{Column: "Y_DEBIT", Name: "y_debit", Type: model.FieldNumeric, Scale: 2},
			{Column: "Y_CREDIT", Name: "y_credit", Type: model.FieldNumeric, Scale: 2},
		},
	},
}
