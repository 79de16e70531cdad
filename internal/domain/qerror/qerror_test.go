package qerror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/deshmukhh/crease/internal/domain/qerror"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCodedErrors(t *testing.T) {
	Convey("Given a coded error", t, func() {
		err := qerror.New(qerror.CodeAmbiguousEntity, "name matches multiple players").
			WithCandidates("Rohit Sharma", "Ishan Sharma")

		Convey("Then the code is extractable", func() {
			So(qerror.CodeOf(err), ShouldEqual, qerror.CodeAmbiguousEntity)
			So(qerror.Is(err, qerror.CodeAmbiguousEntity), ShouldBeTrue)
			So(qerror.Is(err, qerror.CodeQueryTimeout), ShouldBeFalse)
		})

		Convey("Then candidates survive", func() {
			So(err.Candidates, ShouldResemble, []string{"Rohit Sharma", "Ishan Sharma"})
		})

		Convey("Then the message includes the code", func() {
			So(err.Error(), ShouldContainSubstring, "AMBIGUOUS_ENTITY")
		})
	})

	Convey("Given a wrapped coded error", t, func() {
		cause := errors.New("disk I/O error")
		err := qerror.Wrap(qerror.CodeRowStoreError, "query failed", cause)

		Convey("Then errors.Is finds the cause", func() {
			So(errors.Is(err, cause), ShouldBeTrue)
		})

		Convey("Then the code survives another layer of wrapping", func() {
			outer := fmt.Errorf("handling request: %w", err)
			So(qerror.CodeOf(outer), ShouldEqual, qerror.CodeRowStoreError)
		})
	})

	Convey("Given the taxonomy", t, func() {
		Convey("Then user-input codes are recoverable", func() {
			So(qerror.Recoverable(qerror.New(qerror.CodeAmbiguousEntity, "x")), ShouldBeTrue)
			So(qerror.Recoverable(qerror.New(qerror.CodeConflictingFilter, "x")), ShouldBeTrue)
			So(qerror.Recoverable(qerror.New(qerror.CodeUnresolvableIntent, "x")), ShouldBeTrue)
			So(qerror.Recoverable(qerror.New(qerror.CodeNoEntityFound, "x")), ShouldBeTrue)
		})

		Convey("Then engine defects and external failures are not", func() {
			So(qerror.Recoverable(qerror.New(qerror.CodeUnsupportedShape, "x")), ShouldBeFalse)
			So(qerror.Recoverable(qerror.New(qerror.CodeQueryTimeout, "x")), ShouldBeFalse)
			So(qerror.Recoverable(qerror.New(qerror.CodeRowStoreError, "x")), ShouldBeFalse)
			So(qerror.Recoverable(errors.New("plain")), ShouldBeFalse)
		})
	})
}
