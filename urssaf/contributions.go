// Package urssaf implements French payroll contribution checks.
// It uses the compliance engine with the 2024 URSSAF reference rates and
// the reference rules applied to every imported statement.
package urssaf

// =============================================================================
// CONTRIBUTIONS - Statement keys and display labels
// =============================================================================

// Contribution keys as they appear in statement documents.
const (
	Maladie                      = "maladie"
	CSA                          = "csa"
	VieillesseDeplafonnee        = "vieillesse_deplafonnee"
	VieillessePlafonnee          = "vieillesse_plafonnee"
	AllocationFamiliale          = "allocation_familiale"
	AccidentDuTravail            = "accident_du_travail"
	FNAL                         = "fnal"
	CSGDeductible                = "csg_deductible"
	CSGNonDeductible             = "csg_non_deductible"
	CSGNonDeductibleHeuresSupp   = "csg_non_deductible_sur_heures_supplementaires"
	DialogueSocial               = "contribution_au_dialogue_social"
	ReductionCotisationsURSSAF   = "reduction_des_cotisation_urssaf"
	AssuranceChomage             = "assurance_chomage"
	AGS                          = "ags"
	TaxeApprentissage            = "taxe_apprentissage"
	FormationProfessionnelle     = "formation_professionnelle"
	RetraiteT1                   = "retraite_t1"
	RetraiteT2                   = "retraite_t2"
	CEGT1                        = "ceg_t1"
	CEGT2                        = "ceg_t2"
	ReductionCotisationsRetraite = "reduction_des_cotisation_retraites"
	PrevoyanceNonCadreTA         = "prevoyance_non_cadre_ta"
	RenteEducationNonCadreTA     = "rente_education_non_cadre_ta"
	PrevoyanceNonCadreTB         = "prevoyance_non_cadre_tb"
	RenteEducationNonCadreTB     = "rente_education_non_cadre_tb"
	FraisDeSante                 = "frais_de_sante"
	TaxeApprentissageLiberatoire = "taxe_apprentissage_liberatoire"
)

type contribution struct {
	key   string
	label string
}

// displayOrder is the row order of a statement's deduction table.
var displayOrder = []contribution{
	{Maladie, "Assurance maladie, maternité, invalidité, décès"},
	{CSA, "Contribution solidarité autonomie (CSA)"},
	{VieillesseDeplafonnee, "Vieillesse déplafonnée"},
	{VieillessePlafonnee, "Vieillesse plafonnée"},
	{AllocationFamiliale, "Allocations familiales"},
	{AccidentDuTravail, "Accident du travail / maladies professionnelles"},
	{FNAL, "Fonds national d'aide au logement"},
	{CSGDeductible, "CSG déductible de l'impôt sur le revenu"},
	{CSGNonDeductible, "CSG non déductible de l'impôt sur le revenu"},
	{CSGNonDeductibleHeuresSupp, "CSG non déductible sur heures supplémentaires"},
	{DialogueSocial, "Contribution au dialogue social"},
	{ReductionCotisationsURSSAF, "Réduction des cotisations URSSAF"},
	{AssuranceChomage, "Assurance chômage"},
	{AGS, "Garantie de l'assurance chômage"},
	{TaxeApprentissage, "Taxe d'apprentissage"},
	{FormationProfessionnelle, "Formation professionnelle"},
	{RetraiteT1, "Retraite T1"},
	{RetraiteT2, "Retraite T2"},
	{CEGT1, "CEG T1"},
	{CEGT2, "CEG T2"},
	{ReductionCotisationsRetraite, "Réduction des cotisations de retraite"},
	{PrevoyanceNonCadreTA, "Prévoyance non-cadre TA"},
	{RenteEducationNonCadreTA, "Rente éducation non-cadre TA"},
	{PrevoyanceNonCadreTB, "Prévoyance non-cadre TB"},
	{RenteEducationNonCadreTB, "Rente éducation non-cadre TB"},
	{FraisDeSante, "Frais de santé"},
	{TaxeApprentissageLiberatoire, "Taxe d'apprentissage libératoire"},
}

var labels = func() map[string]string {
	m := make(map[string]string, len(displayOrder))
	for _, c := range displayOrder {
		m[c.key] = c.label
	}
	return m
}()

// Label returns the display label of a contribution key. Unknown keys are
// returned unchanged.
func Label(key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return key
}

// DisplayOrder returns the known contribution keys in table order.
func DisplayOrder() []string {
	keys := make([]string, len(displayOrder))
	for i, c := range displayOrder {
		keys[i] = c.key
	}
	return keys
}
