package pathutils_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/lokimigrate/internal/utils/path"
)

const (
	testHomeDirectoryConstant       = "/home/operator"
	testDataDirectorySuffixConstant = ".loki"
	testOtherUserPathConstant       = "~other/.loki"
	testAbsolutePathConstant        = "/srv/loki"
)

func TestHomeExpanderExpand(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return testHomeDirectoryConstant, nil
	})

	testCases := []struct {
		name         string
		candidate    string
		expectedPath string
	}{
		{name: "empty", candidate: "", expectedPath: ""},
		{name: "tilde_only", candidate: "~", expectedPath: testHomeDirectoryConstant},
		{name: "tilde_prefix", candidate: "~/" + testDataDirectorySuffixConstant, expectedPath: filepath.Join(testHomeDirectoryConstant, testDataDirectorySuffixConstant)},
		{name: "other_user", candidate: testOtherUserPathConstant, expectedPath: testOtherUserPathConstant},
		{name: "absolute", candidate: testAbsolutePathConstant, expectedPath: testAbsolutePathConstant},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedPath, expander.Expand(testCase.candidate))
		})
	}
}

func TestHomeExpanderKeepsTildeWhenHomeLookupFails(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return "", errors.New("no home")
	})

	require.Equal(testInstance, "~/"+testDataDirectorySuffixConstant, expander.Expand("~/"+testDataDirectorySuffixConstant))
}

func TestHomeExpanderResolveAbsolute(testInstance *testing.T) {
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return testHomeDirectoryConstant, nil
	})

	resolvedHomePath, resolveError := expander.ResolveAbsolute(" ~/" + testDataDirectorySuffixConstant + " ")
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, filepath.Join(testHomeDirectoryConstant, testDataDirectorySuffixConstant), resolvedHomePath)

	resolvedRelativePath, relativeError := expander.ResolveAbsolute("codebase/../codebase")
	require.NoError(testInstance, relativeError)
	require.Equal(testInstance, filepath.Join(workingDirectory, "codebase"), resolvedRelativePath)

	_, emptyError := expander.ResolveAbsolute("   ")
	require.ErrorIs(testInstance, emptyError, pathutils.ErrEmptyPath)
}
