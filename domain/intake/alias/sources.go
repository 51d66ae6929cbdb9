package alias

import "intakegate/domain/intake"

// Header spellings are listed once; Fold makes underscore and spacing variants redundant.

var skyward = Source{
	Name: "Skyward",
	Variants: map[intake.Field][]string{
		intake.FieldIncidentNumber:    {"Incident Number", "Incident #", "Incident Nbr", "Inc Number", "Inc #"},
		intake.FieldDateTime:          {"Incident Date & Time", "Incident Date and Time", "Incident Date Time", "Incident Date", "Incident DateTime"},
		intake.FieldBuilding:          {"Building", "Building Name", "Campus", "Campus Name", "School"},
		intake.FieldEntityCode:        {"Entity Code"},
		intake.FieldGrade:             {"Grade Level", "Grade", "Student Grade", "Student Grade Level", "Grade Lvl"},
		intake.FieldIncidentType:      {"Incident Type", "Behavior Type", "Violation", "Violation Type"},
		intake.FieldLocation:          {"Location", "Incident Location"},
		intake.FieldTimeBlock:         {"Class Period", "Period", "Time Block", "Time Period"},
		intake.FieldResponse:          {"Action Taken"},
		intake.FieldConsequenceType:   {"Consequence Type", "Action Type"},
		intake.FieldStartDate:         {"Consequence Start Date", "Start Date", "Begin Date"},
		intake.FieldEndDate:           {"Consequence End Date", "End Date"},
		intake.FieldDaysRemoved:       {"Days Removed", "Number of Days", "Nbr Days", "Num Days"},
		intake.FieldExplicitMinutes:   {"Instructional Minutes Lost", "Minutes Lost", "Instructional Minutes"},
		intake.FieldRace:              {"Race", "Ethnicity", "Race/Ethnicity"},
		intake.FieldGender:            {"Gender", "Sex"},
		intake.FieldSpecialPopulation: {"Special Education", "Spec Ed", "Special Ed"},
	},
}

var powerSchool = Source{
	Name: "PowerSchool",
	Variants: map[intake.Field][]string{
		intake.FieldIncidentNumber:    {"Incident Number", "Incident ID", "Offense ID", "Offense Number"},
		intake.FieldDateTime:          {"Incident Date", "Date of Incident", "Offense Date"},
		intake.FieldBuilding:          {"School Name", "Campus Name", "School", "Campus"},
		intake.FieldGrade:             {"Grade Level", "Grade", "Student Grade", "Student Grade Level"},
		intake.FieldIncidentType:      {"Offense Type", "Incident Type", "Behavior Type"},
		intake.FieldLocation:          {"Offense Location", "Incident Location", "Location"},
		intake.FieldTimeBlock:         {"Class Period", "Period", "TimeBlock"},
		intake.FieldResponse:          {"Action Taken", "Staff Response"},
		intake.FieldConsequenceType:   {"Consequence Type", "Action Type", "Response Type"},
		intake.FieldStartDate:         {"Consequence Start Date", "Start Date", "Action Start Date", "Suspension Start Date"},
		intake.FieldEndDate:           {"Consequence End Date", "End Date", "Action End Date", "Suspension End Date", "Return Date"},
		intake.FieldDaysRemoved:       {"Days Removed", "Days Assigned", "Days Suspended", "Number of Days"},
		intake.FieldExplicitMinutes:   {"Instructional Minutes Lost", "Minutes Lost", "Instructional Minutes"},
		intake.FieldRace:              {"Race", "Ethnicity", "Race Ethnicity", "Race/Ethnicity"},
		intake.FieldGender:            {"Gender", "Sex"},
		intake.FieldSpecialPopulation: {"Special Ed", "Special Education", "IEP", "504 Status", "ELL", "LEP"},
	},
}

var deansList = Source{
	Name: "DeansList",
	Variants: map[intake.Field][]string{
		intake.FieldIncidentNumber:    {"Incident ID", "Incident Number"},
		intake.FieldDateTime:          {"Incident Date", "Date of Incident"},
		intake.FieldBuilding:          {"School", "Campus", "Campus Name"},
		intake.FieldGrade:             {"Grade", "Grade Level", "Student Grade"},
		intake.FieldIncidentType:      {"Infraction", "Infraction Type", "Incident Category", "Incident Type", "Behavior"},
		intake.FieldLocation:          {"Location", "Incident Location"},
		intake.FieldTimeBlock:         {"Period", "Class Period", "Time Block"},
		intake.FieldResponse:          {"Action Taken", "Staff Response"},
		intake.FieldConsequenceType:   {"Consequence", "Consequence Type", "Action Type", "Sanction", "Sanction Type"},
		intake.FieldStartDate:         {"Start Date", "Consequence Start Date", "Begin Date"},
		intake.FieldEndDate:           {"End Date", "Consequence End Date"},
		intake.FieldDaysRemoved:       {"Days Removed", "Days Suspended", "Number of Days"},
		intake.FieldExplicitMinutes:   {"Instructional Minutes Lost", "Instructional Minutes", "Minutes Lost"},
		intake.FieldRace:              {"Race", "Race/Ethnicity", "Ethnicity"},
		intake.FieldGender:            {"Gender"},
		intake.FieldSpecialPopulation: {"SPED", "IEP", "ELL", "LEP", "Special Education", "Spec Ed", "504 Status"},
	},
}

var infiniteCampus = Source{
	Name: "Infinite Campus",
	Variants: map[intake.Field][]string{
		intake.FieldIncidentNumber:    {"Incident Number", "Event ID"},
		intake.FieldDateTime:          {"Incident Date", "Incident Date & Time", "Date of Incident"},
		intake.FieldBuilding:          {"Calendar Name", "School Name", "Campus", "Campus Name", "School"},
		intake.FieldGrade:             {"Grade", "Grade Level", "Student Grade Level", "Student Grade"},
		intake.FieldIncidentType:      {"Event Type", "Incident Type", "Behavior Type"},
		intake.FieldLocation:          {"Location", "Event Location", "Incident Location"},
		intake.FieldTimeBlock:         {"Period", "Class Period", "Time Block"},
		intake.FieldResponse:          {"Staff Response", "Action Taken"},
		intake.FieldConsequenceType:   {"Resolution Type", "Resolution", "Consequence Type", "Action Type", "Intervention Type"},
		intake.FieldStartDate:         {"Consequence Start", "Consequence Start Date", "Start Date", "Begin Date"},
		intake.FieldEndDate:           {"Consequence End", "Consequence End Date", "End Date", "Return Date"},
		intake.FieldDaysRemoved:       {"Days Removed", "Days Suspended", "Number of Days"},
		intake.FieldExplicitMinutes:   {"Instructional Minutes Lost", "Instructional Minutes", "Minutes Lost"},
		intake.FieldRace:              {"Race", "Race/Ethnicity", "Ethnicity"},
		intake.FieldGender:            {"Gender", "Sex"},
		intake.FieldSpecialPopulation: {"Special Education", "IEP", "ELL", "LEP", "504 Status", "Disability Status"},
	},
}

var teams = Source{
	Name: "TEAMS",
	Variants: map[intake.Field][]string{
		intake.FieldIncidentNumber:    {"Incident Nbr", "Incident Number", "Referral Number", "Referral #", "Referral ID"},
		intake.FieldDateTime:          {"Incident Date", "Referral Date", "Date of Incident"},
		intake.FieldBuilding:          {"Campus", "Campus Name", "School", "School Name"},
		intake.FieldEntityCode:        {"Campus ID", "Campus Number"},
		intake.FieldGrade:             {"Grade", "Grade Level", "Student Grade"},
		intake.FieldIncidentType:      {"Conduct Code", "Offense Code", "Incident Type", "Conduct"},
		intake.FieldLocation:          {"Location", "Location Code", "Incident Location"},
		intake.FieldTimeBlock:         {"Period", "Class Period", "Time Block"},
		intake.FieldResponse:          {"Action Taken", "Staff Response"},
		intake.FieldConsequenceType:   {"Consequence Type", "Disciplinary Action", "Removal Type", "Action Type"},
		intake.FieldStartDate:         {"Consequence Start Date", "Removal Begin Date", "Start Date", "Begin Date", "DAEP Begin Date", "Suspension Start Date"},
		intake.FieldEndDate:           {"Consequence End Date", "Removal End Date", "End Date", "DAEP End Date", "Suspension End Date", "Return Date"},
		intake.FieldDaysRemoved:       {"Days Removed", "Removal Days", "Days Suspended", "Number of Days", "Days of Removal"},
		intake.FieldExplicitMinutes:   {"Instructional Minutes Lost", "Instructional Minutes", "Minutes Lost"},
		intake.FieldRace:              {"Race", "Race/Ethnicity", "Ethnicity", "Race Ethnicity"},
		intake.FieldGender:            {"Gender", "Sex"},
		intake.FieldSpecialPopulation: {"Special Education", "Special Ed", "SPED", "IEP", "ELL", "LEP", "ESL", "At Risk"},
	},
}

var generic = Source{
	Name: "Generic",
	Variants: map[intake.Field][]string{
		intake.FieldIncidentNumber:  {"Incident Number", "Incident #", "Inc Number", "Inc #", "Incident ID"},
		intake.FieldDateTime:        {"Incident Date & Time", "Incident Date and Time", "Incident Date", "Incident DateTime", "Date of Incident", "Date"},
		intake.FieldBuilding:        {"Campus", "Campus Name", "School", "School Name", "Building", "Building Name"},
		intake.FieldEntityCode:      {"Entity Code", "Entity", "Campus Code", "School Code"},
		intake.FieldGrade:           {"Grade", "Grade Level", "Student Grade", "Student Grade Level", "Grade Lvl"},
		intake.FieldIncidentType:    {"Incident Type", "Behavior Type", "Infraction Type", "Violation", "Violation Type", "Incident Category"},
		intake.FieldLocation:        {"Location", "Incident Location"},
		intake.FieldTimeBlock:       {"Time Block", "Class Period", "Period", "Time Period", "Block"},
		intake.FieldResponse:        {"Response", "Action Taken", "Staff Response", "Teacher Response", "Teacher Action"},
		intake.FieldConsequenceType: {"Consequence Type", "Action Type", "Response Type", "Consequence", "Sanction", "Sanction Type", "Intervention Type", "Disciplinary Action", "Removal Type", "Resolution Type", "Resolution"},
		intake.FieldStartDate:       {"Consequence Start Date", "Start Date", "Begin Date", "Consequence Start", "Removal Begin Date", "Action Start Date", "Suspension Start Date"},
		intake.FieldEndDate:         {"Consequence End Date", "End Date", "Consequence End", "Removal End Date", "Action End Date", "Suspension End Date", "Return Date"},
		intake.FieldDaysRemoved:     {"Days Removed", "Days Suspended", "Number of Days", "Days Assigned", "Removal Days", "Num Days", "Nbr Days", "# Days", "Days of Removal"},
		intake.FieldExplicitMinutes: {"Instructional Minutes Lost", "Minutes Lost", "Instructional Minutes", "Inst Minutes", "Minutes Removed", "Minutes of Removal", "Explicit Minutes"},
		intake.FieldRace:            {"Race", "Ethnicity", "Race/Ethnicity", "Race Ethnicity", "Student Race", "Student Ethnicity", "Racial/Ethnic Group"},
		intake.FieldGender:          {"Gender", "Sex", "Student Gender", "Student Sex"},
		intake.FieldSpecialPopulation: {
			"Special Population", "Special Education", "Spec Ed", "Special Ed", "SPED", "IEP", "ELL", "LEP", "ESL",
			"Disability", "Disability Status", "504 Status", "IEP Status", "English Learner",
			"Limited English Proficient", "At Risk", "Economically Disadvantaged",
		},
	},
}

// BuiltinSources returns the SIS vocabularies in lookup order
func BuiltinSources() []Source {
	return []Source{skyward, powerSchool, deansList, infiniteCampus, teams, generic}
}
