// Package sandbox generates reproducible synthetic hospitals, staff, patients
// and test results for demo and development databases.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/domain/hospital"
	"github.com/ehr/records/internal/domain/patient"
	"github.com/ehr/records/internal/domain/testresult"
	"github.com/ehr/records/internal/domain/user"
	"github.com/ehr/records/pkg/civil"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// SeedConfig controls the volume and shape of generated synthetic data.
type SeedConfig struct {
	HospitalCount       int    `json:"hospitalCount"`
	DoctorsPerHospital  int    `json:"doctorsPerHospital"`
	PatientsPerHospital int    `json:"patientsPerHospital"`
	ResultsPerPatient   int    `json:"resultsPerPatient"`
	Password            string `json:"-"`
	Year                int    `json:"year"`
	Seed                int64  `json:"seed"`
}

const DefaultPassword = "password123"

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		HospitalCount:       5,
		DoctorsPerHospital:  2,
		PatientsPerHospital: 5,
		ResultsPerPatient:   4,
		Password:            DefaultPassword,
	}
}

// ---------------------------------------------------------------------------
// Dataset
// ---------------------------------------------------------------------------

// Dataset is a generated, not yet persisted, set of records. Cross references
// (patient to user, result to test type) are by position and name and are
// resolved when the dataset is loaded.
type Dataset struct {
	TestTypes []TestTypeSeed `json:"testTypes"`
	Hospitals []HospitalSeed `json:"hospitals"`
}

type TestTypeSeed struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type HospitalSeed struct {
	Registration hospital.Registration `json:"registration"`
	Staff        []user.CreateRequest  `json:"staff"`
	Patients     []PatientSeed         `json:"patients"`
}

type PatientSeed struct {
	User    user.CreateRequest    `json:"user"`
	Patient patient.CreateRequest `json:"patient"`
	Results []ResultSeed          `json:"results"`
}

type ResultSeed struct {
	TestType string     `json:"testType"`
	Result   string     `json:"result"`
	TestDate civil.Date `json:"testDate"`
}

// SeedResult summarizes a load.
type SeedResult struct {
	Hospitals   int           `json:"hospitals"`
	Users       int           `json:"users"`
	Patients    int           `json:"patients"`
	TestTypes   int           `json:"testTypes"`
	TestResults int           `json:"testResults"`
	Duration    time.Duration `json:"duration"`
}

// ---------------------------------------------------------------------------
// Pools
// ---------------------------------------------------------------------------

var (
	firstNamesMale = []string{
		"James", "Robert", "John", "Michael", "David", "William", "Richard",
		"Joseph", "Thomas", "Christopher", "Charles", "Daniel", "Matthew",
		"Anthony", "Mark", "Donald", "Steven", "Paul", "Andrew", "Joshua",
	}
	firstNamesFemale = []string{
		"Mary", "Patricia", "Jennifer", "Linda", "Barbara", "Elizabeth",
		"Susan", "Jessica", "Sarah", "Karen", "Lisa", "Nancy", "Betty",
		"Margaret", "Sandra", "Ashley", "Dorothy", "Kimberly", "Emily",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia",
		"Miller", "Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez",
		"Gonzalez", "Wilson", "Anderson", "Thomas", "Taylor", "Moore",
	}
	streets = []string{
		"123 Main St", "456 Oak Ave", "789 Elm St", "321 Pine Rd",
		"654 Maple Dr", "987 Cedar Ln", "147 Birch Blvd", "258 Walnut Way",
	}
	cities = []string{
		"New York", "Los Angeles", "Chicago", "Houston", "Phoenix",
		"Philadelphia", "San Antonio", "San Diego", "Dallas", "Austin",
	}
	states    = []string{"NY", "CA", "IL", "TX", "AZ", "PA", "FL", "OH", "NC", "GA"}
	zips      = []string{"10001", "90001", "60601", "77001", "85001", "19101", "78201", "92101"}
	relations = []string{"spouse", "parent", "sibling"}
	units     = []string{"g/dL", "mg/dL", "mmol/L"}

	// Catalogue entries carry their LOINC code in the description.
	testCatalogue = []TestTypeSeed{
		{"Complete Blood Count", "LOINC 58410-2"},
		{"X-Ray Chest", "LOINC 42272-5"},
		{"MRI Brain", "LOINC 24590-2"},
		{"Lipid Panel", "LOINC 57698-3"},
		{"Blood Glucose", "LOINC 2345-7"},
		{"Urinalysis", "LOINC 24356-8"},
		{"ECG", "LOINC 11524-6"},
		{"CT Abdomen", "LOINC 78970-6"},
		{"Hemoglobin A1c", "LOINC 4548-4"},
		{"Thyroid Panel", "LOINC 24348-5"},
	}
)

// ---------------------------------------------------------------------------
// DataGenerator
// ---------------------------------------------------------------------------

// DataGenerator produces deterministic synthetic records.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) randomDate(minYear, maxYear int) civil.Date {
	return civil.Date{
		Year:  minYear + g.rng.Intn(maxYear-minYear+1),
		Month: time.Month(1 + g.rng.Intn(12)),
		Day:   1 + g.rng.Intn(28), // safe for all months
	}
}

func (g *DataGenerator) randomPhone() string {
	return fmt.Sprintf("(%03d) %03d-%04d",
		200+g.rng.Intn(800),
		200+g.rng.Intn(800),
		g.rng.Intn(10000),
	)
}

func (g *DataGenerator) person() (first, last, gender string) {
	if g.rng.Intn(2) == 0 {
		first, gender = g.pick(firstNamesMale), "male"
	} else {
		first, gender = g.pick(firstNamesFemale), "female"
	}
	return first, g.pick(lastNames), gender
}

// LicenseNumber returns the license number of the n-th hospital, 1-based.
func LicenseNumber(n int) string {
	return fmt.Sprintf("HOSP%03d", n)
}

// PatientUniqueID returns the unique_id of the n-th patient of a hospital.
func PatientUniqueID(year int, license string, n int) string {
	return fmt.Sprintf("%d-%s-%06d", year, license, n)
}

// GenerateHospital produces the registration for the n-th hospital.
func (g *DataGenerator) GenerateHospital(n int, password string) hospital.Registration {
	license := LicenseNumber(n)
	email := strings.ToLower(license) + "@hospitals.example.org"
	phone := g.randomPhone()
	city := g.pick(cities)
	return hospital.Registration{
		Name:          city + " General Hospital",
		LicenseNumber: license,
		Address: map[string]interface{}{
			"street": g.pick(streets),
			"city":   city,
			"state":  g.pick(states),
			"zip":    g.pick(zips),
		},
		ContactEmail: &email,
		ContactPhone: &phone,
		Password:     password,
	}
}

// GenerateStaff produces a staff user for a hospital. Emails are derived from
// the license number and role so they are unique across a dataset.
func (g *DataGenerator) GenerateStaff(license, role string, n int, password string) user.CreateRequest {
	first, last, _ := g.person()
	return user.CreateRequest{
		Email:     fmt.Sprintf("%s%d@%s.example.org", role, n, strings.ToLower(license)),
		Password:  password,
		Role:      role,
		FirstName: &first,
		LastName:  &last,
	}
}

// GeneratePatient produces the credential-holding user and the patient record
// for the n-th patient of a hospital. The patient's user_id and
// created_by_hospital_id are filled in at load time.
func (g *DataGenerator) GeneratePatient(year int, license string, n int, password string) PatientSeed {
	first, last, gender := g.person()
	uniqueID := PatientUniqueID(year, license, n)
	phone := g.randomPhone()
	contactFirst, contactLast, _ := g.person()

	return PatientSeed{
		User: user.CreateRequest{
			Email:     strings.ToLower(uniqueID) + "@patients.example.org",
			Password:  password,
			Role:      "patient",
			FirstName: &first,
			LastName:  &last,
		},
		Patient: patient.CreateRequest{
			UniqueID:     uniqueID,
			DOB:          g.randomDate(year-80, year-18),
			Gender:       &gender,
			ContactPhone: &phone,
			EmergencyContact: map[string]interface{}{
				"name":     contactFirst + " " + contactLast,
				"phone":    g.randomPhone(),
				"relation": g.pick(relations),
			},
		},
	}
}

// GenerateResult produces one test result dated within the two years before
// year.
func (g *DataGenerator) GenerateResult(year int) ResultSeed {
	tt := testCatalogue[g.rng.Intn(len(testCatalogue))]
	value := 5.0 + g.rng.Float64()*10.0
	return ResultSeed{
		TestType: tt.Name,
		Result:   fmt.Sprintf("%.1f %s", value, g.pick(units)),
		TestDate: g.randomDate(year-2, year-1),
	}
}

// ---------------------------------------------------------------------------
// Seeder
// ---------------------------------------------------------------------------

// Services are the write paths a dataset is loaded through. Loading goes
// through the domain services so tenancy and uniqueness rules still apply.
type Services struct {
	Hospitals   *hospital.Service
	Users       *user.Service
	Patients    *patient.Service
	TestResults *testresult.Service
	TestTypes   testresult.TypeRepository
}

// TxRunner runs fn inside one storage transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Seeder generates a dataset and loads it.
type Seeder struct {
	config   SeedConfig
	svc      Services
	inTx     TxRunner
	generate *DataGenerator
}

func NewSeeder(config SeedConfig, svc Services, inTx TxRunner) *Seeder {
	if config.Password == "" {
		config.Password = DefaultPassword
	}
	if config.Year == 0 {
		config.Year = time.Now().Year()
	}
	if inTx == nil {
		inTx = func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }
	}
	return &Seeder{
		config:   config,
		svc:      svc,
		inTx:     inTx,
		generate: NewDataGenerator(config.Seed),
	}
}

// Generate builds a dataset without touching storage.
func (s *Seeder) Generate() *Dataset {
	ds := &Dataset{TestTypes: append([]TestTypeSeed(nil), testCatalogue...)}
	pw := s.config.Password
	year := s.config.Year

	for i := 1; i <= s.config.HospitalCount; i++ {
		reg := s.generate.GenerateHospital(i, pw)
		hs := HospitalSeed{Registration: reg}

		hs.Staff = append(hs.Staff, s.generate.GenerateStaff(reg.LicenseNumber, "admin", 1, pw))
		for d := 1; d <= s.config.DoctorsPerHospital; d++ {
			hs.Staff = append(hs.Staff, s.generate.GenerateStaff(reg.LicenseNumber, "doctor", d, pw))
		}

		for p := 1; p <= s.config.PatientsPerHospital; p++ {
			ps := s.generate.GeneratePatient(year, reg.LicenseNumber, p, pw)
			for r := 0; r < s.config.ResultsPerPatient; r++ {
				ps.Results = append(ps.Results, s.generate.GenerateResult(year))
			}
			hs.Patients = append(hs.Patients, ps)
		}
		ds.Hospitals = append(ds.Hospitals, hs)
	}
	return ds
}

// Run generates a dataset and loads it.
func (s *Seeder) Run(ctx context.Context) (*SeedResult, error) {
	return s.Load(ctx, s.Generate())
}

// Load persists ds. The test-type catalogue is reused where names already
// exist. Each hospital and everything under it is loaded in one transaction.
func (s *Seeder) Load(ctx context.Context, ds *Dataset) (*SeedResult, error) {
	start := time.Now()
	log := zerolog.Ctx(ctx)
	result := &SeedResult{}

	typeIDs, created, err := s.ensureTestTypes(ctx, ds.TestTypes)
	if err != nil {
		return nil, err
	}
	result.TestTypes = created

	for _, hs := range ds.Hospitals {
		err := s.inTx(ctx, func(ctx context.Context) error {
			return s.loadHospital(ctx, hs, typeIDs, result)
		})
		if err != nil {
			return nil, fmt.Errorf("seed hospital %s: %w", hs.Registration.LicenseNumber, err)
		}
		log.Info().Str("license_number", hs.Registration.LicenseNumber).
			Int("patients", len(hs.Patients)).Msg("seeded hospital")
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (s *Seeder) ensureTestTypes(ctx context.Context, seeds []TestTypeSeed) (map[string]uuid.UUID, int, error) {
	existing, err := s.svc.TestTypes.List(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list test types: %w", err)
	}
	ids := make(map[string]uuid.UUID, len(seeds))
	for _, tt := range existing {
		ids[tt.Name] = tt.ID
	}

	created := 0
	for _, seed := range seeds {
		if _, ok := ids[seed.Name]; ok {
			continue
		}
		desc := seed.Description
		tt := &testresult.TestType{Name: seed.Name, Description: &desc}
		if err := s.svc.TestTypes.Create(ctx, tt); err != nil {
			return nil, 0, fmt.Errorf("create test type %q: %w", seed.Name, err)
		}
		ids[tt.Name] = tt.ID
		created++
	}
	return ids, created, nil
}

func (s *Seeder) loadHospital(ctx context.Context, hs HospitalSeed, typeIDs map[string]uuid.UUID, result *SeedResult) error {
	h, err := s.svc.Hospitals.Register(ctx, hs.Registration)
	if err != nil {
		return err
	}
	result.Hospitals++

	for _, staff := range hs.Staff {
		if _, err := s.svc.Users.Create(ctx, h.ID, staff); err != nil {
			return fmt.Errorf("create %s: %w", staff.Email, err)
		}
		result.Users++
	}

	for _, ps := range hs.Patients {
		u, err := s.svc.Users.Create(ctx, h.ID, ps.User)
		if err != nil {
			return fmt.Errorf("create %s: %w", ps.User.Email, err)
		}
		result.Users++

		req := ps.Patient
		req.UserID = u.ID.String()
		req.CreatedByHospitalID = h.ID.String()
		p, err := s.svc.Patients.Create(ctx, h.ID, req)
		if err != nil {
			return fmt.Errorf("create patient %s: %w", req.UniqueID, err)
		}
		result.Patients++

		for _, rs := range ps.Results {
			typeID, ok := typeIDs[rs.TestType]
			if !ok {
				return fmt.Errorf("unknown test type %q", rs.TestType)
			}
			_, err := s.svc.TestResults.Create(ctx, h.ID, p.ID.String(), testresult.CreateRequest{
				TestTypeID: typeID.String(),
				Result:     rs.Result,
				TestDate:   rs.TestDate,
			})
			if err != nil {
				return fmt.Errorf("create result for %s: %w", req.UniqueID, err)
			}
			result.TestResults++
		}
	}
	return nil
}

// ExportJSON writes ds as indented JSON with passwords blanked.
func ExportJSON(w io.Writer, ds *Dataset) error {
	redacted := *ds
	redacted.Hospitals = make([]HospitalSeed, len(ds.Hospitals))
	for i, hs := range ds.Hospitals {
		hs.Registration.Password = ""
		hs.Staff = redactUsers(hs.Staff)
		patients := make([]PatientSeed, len(hs.Patients))
		for j, ps := range hs.Patients {
			ps.User.Password = ""
			patients[j] = ps
		}
		hs.Patients = patients
		redacted.Hospitals[i] = hs
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(redacted)
}

func redactUsers(in []user.CreateRequest) []user.CreateRequest {
	out := make([]user.CreateRequest, len(in))
	for i, u := range in {
		u.Password = ""
		out[i] = u
	}
	return out
}
