package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/hackgods/clinic-booking/internal/config"
	"github.com/hackgods/clinic-booking/internal/db"
)

const adminEmail = "admin@bookmycare.com"

type seedDoctor struct {
	name, email, spec, degree, qual string
	fee                             float64
	exp                             int
}

var doctors = []seedDoctor{
	{name: "Sarah Johnson", email: "sarah@doc.com", spec: "Cardiologist", fee: 800, degree: "MBBS, MD", qual: "Senior Cardiologist", exp: 12},
	{name: "Michael Chen", email: "michael@doc.com", spec: "Dermatologist", fee: 600, degree: "MBBS, DDVL", qual: "Skin Specialist", exp: 8},
	{name: "Emily Davis", email: "emily@doc.com", spec: "Pediatrician", fee: 500, degree: "MBBS, DCH", qual: "Child Specialist", exp: 5},
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	patients := flag.Int("patients", 200, "number of fake patients to create")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, true)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	ctx = context.Background()

	seeded, err := alreadySeeded(ctx, pool)
	if err != nil {
		log.Fatalf("check existing data: %v", err)
	}
	if seeded {
		log.Printf("%s exists, skipping seed", adminEmail)
		return
	}

	if err := seedStaff(ctx, pool, cfg.BcryptCost); err != nil {
		log.Fatalf("seed staff: %v", err)
	}
	if err := seedPatients(ctx, pool, *patients, cfg.BcryptCost); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func alreadySeeded(ctx context.Context, pool *pgxpool.Pool) (bool, error) {
	var id int64
	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, adminEmail).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func hash(password string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(b), err
}

// seedStaff creates the admin account and the demo doctors.
func seedStaff(ctx context.Context, pool *pgxpool.Pool, cost int) error {
	adminHash, err := hash("admin123", cost)
	if err != nil {
		return err
	}
	doctorHash, err := hash("doc123", cost)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, 'admin')
	`, "System Admin", adminEmail, adminHash)
	if err != nil {
		return err
	}

	for _, d := range doctors {
		var userID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO users (name, email, password_hash, role)
			VALUES ($1, $2, $3, 'doctor')
			RETURNING id
		`, d.name, d.email, doctorHash).Scan(&userID)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO doctors (user_id, specialization, consultation_fee, degree, qualification, experience)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, userID, d.spec, d.fee, d.degree, d.qual, d.exp)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("admin and %d doctors seeded", len(doctors))
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count, cost int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	// every fake patient shares one password so seeding does not spend minutes in bcrypt
	patientHash, err := hash("patient123", cost)
	if err != nil {
		return err
	}

	faker := gofakeit.New(0)
	bloodGroups := []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			var userID int64
			err := tx.QueryRow(ctx, `
				INSERT INTO users (name, email, phone, password_hash, role)
				VALUES ($1, $2, $3, $4, 'patient')
				ON CONFLICT (email) DO NOTHING
				RETURNING id
			`, faker.Name(), faker.Email(), faker.Phone(), patientHash).Scan(&userID)
			if errors.Is(err, pgx.ErrNoRows) {
				// faker repeated an email
				continue
			}
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO patients (user_id, age, gender, blood_group)
				VALUES ($1, $2, $3, $4)
			`, userID, faker.Number(1, 90), faker.Gender(), faker.RandomString(bloodGroups))
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	return nil
}
