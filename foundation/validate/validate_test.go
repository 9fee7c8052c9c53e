package validate_test

import (
	"testing"

	"github.com/ardanlabs/votechain/foundation/validate"
)

func Test_Check(t *testing.T) {
	type model struct {
		VoterID   string `json:"voter_id" validate:"required"`
		Candidate string `json:"candidate" validate:"required"`
	}

	type table struct {
		name   string
		val    model
		fields []string
	}

	tt := []table{
		{name: "valid", val: model{VoterID: "V1", Candidate: "A"}},
		{name: "candidate", val: model{VoterID: "V1"}, fields: []string{"candidate"}},
		{name: "empty", val: model{}, fields: []string{"voter_id", "candidate"}},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			err := validate.Check(tst.val)

			if len(tst.fields) == 0 {
				if err != nil {
					t.Fatalf("Test %s:\tShould validate the model: %s", tst.name, err)
				}
				return
			}

			if !validate.IsFieldErrors(err) {
				t.Fatalf("Test %s:\tShould get back field errors: %v", tst.name, err)
			}

			fields := validate.GetFieldErrors(err).Fields()
			if len(fields) != len(tst.fields) {
				t.Logf("Test %s:\tgot: %v", tst.name, fields)
				t.Logf("Test %s:\texp: %v", tst.name, tst.fields)
				t.Fatalf("Test %s:\tShould get back the failing fields.", tst.name)
			}

			for _, name := range tst.fields {
				if fields[name] == "" {
					t.Fatalf("Test %s:\tShould get back a message for field %q.", tst.name, name)
				}
			}
		}

		t.Run(tst.name, f)
	}
}
