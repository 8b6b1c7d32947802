package schema

// Default is the built-in patient schema table.
func Default() *Mapping {
	m, err := NewMapping(DefaultFields())
	if err != nil {
		panic(err)
	}
	return m
}

func DefaultFields() []Field {
	return []Field{
		{Name: FieldMemberID, Canonical: "MemberID", Candidates: []string{"Member_ID", "member_id", "MEMBER_ID", "Member ID", "memberid"}},
		{Name: FieldPayer, Canonical: "Payer", Candidates: []string{"payer", "PAYER"}},
		{Name: FieldZIP, Canonical: "Plan_zip", Candidates: []string{
			"Plan Zip", "Plan_Zip", "PlanZip", "plan_zip", "plan zip", "PLAN_ZIP", "PLAN ZIP",
			"zip", "Zip", "ZIP", "zip_code", "Zip Code", "ZIP_CODE",
		}},
		{Name: FieldAge, Canonical: "Age", Candidates: []string{"age", "AGE"}},
		{Name: FieldGender, Canonical: "gender", Candidates: []string{"Gender", "GENDER"}},
		{Name: FieldDiabetes, Canonical: "diabetes", Candidates: []string{"Diabetes", "DIABETES"}},
		{Name: FieldHypertension, Canonical: "hypertension", Candidates: []string{"Hypertension", "HYPERTENSION"}},
		{Name: FieldChronicKidney, Canonical: "chronic_kidney", Candidates: []string{"Chronic_Kidney", "Chronic Kidney", "chronic kidney", "CHRONIC_KIDNEY"}},
		{Name: FieldLiverDisease, Canonical: "liver_disease", Candidates: []string{"Liver_Disease", "Liver Disease", "liver disease", "LIVER_DISEASE"}},
		{Name: FieldCOPD, Canonical: "copd", Candidates: []string{"COPD", "Copd"}},
		{Name: FieldHeartDisease, Canonical: "heart_disease", Candidates: []string{"Heart_Disease", "Heart Disease", "heart disease", "HEART_DISEASE"}},
		{Name: FieldComorbidityCount, Canonical: "comorbidity_count", Candidates: []string{"Comorbidity_Count", "comorbidity count", "COMORBIDITY_COUNT"}},
		{Name: FieldAQI, Canonical: "AQI", Candidates: []string{"aqi", "Aqi"}},
		{Name: FieldFakeName, Canonical: "fake_name", Candidates: []string{"Fake_Name", "name", "Name"}},
		{Name: FieldFakeEmail, Canonical: "fake_email", Candidates: []string{"Fake_Email", "email", "Email"}},
		{Name: FieldFakePhone, Canonical: "fake_phone", Candidates: []string{"Fake_Phone", "phone", "Phone"}},
	}
}
